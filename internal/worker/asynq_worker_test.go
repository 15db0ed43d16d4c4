package worker

import (
	"reflect"
	"testing"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
)

func TestTargetBoardsNilConfig(t *testing.T) {
	if got := targetBoards([]string{"g"}, nil); got != nil {
		t.Fatalf("expected nil boards for nil config, got %v", got)
	}
}

func TestTargetBoardsEmptyRequestMeansAll(t *testing.T) {
	boards, err := asagi.NewBoards([]string{"g", "ck"})
	if err != nil {
		t.Fatalf("new boards: %v", err)
	}

	got := targetBoards(nil, boards)
	want := []string{"g", "ck"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected boards, want %v, got %v", want, got)
	}
}

func TestTargetBoardsFiltersUnknown(t *testing.T) {
	boards, err := asagi.NewBoards([]string{"g", "ck"})
	if err != nil {
		t.Fatalf("new boards: %v", err)
	}

	got := targetBoards([]string{"ck", "zz", "g"}, boards)
	want := []string{"ck", "g"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected boards, want %v, got %v", want, got)
	}
}

func TestTargetBoardsAllUnknown(t *testing.T) {
	boards, err := asagi.NewBoards([]string{"g"})
	if err != nil {
		t.Fatalf("new boards: %v", err)
	}

	if got := targetBoards([]string{"zz"}, boards); len(got) != 0 {
		t.Fatalf("expected no boards, got %v", got)
	}
}
