package codec

import (
	"testing"

	"github.com/ayase-lite/ayase-lite/internal/models"
)

func samplePost() *models.Post {
	return &models.Post{
		Board:         "g",
		Num:           1002,
		ThreadNum:     1000,
		Op:            false,
		TsUnix:        1600000000,
		TsExpired:     0,
		Name:          "Anonymous",
		Trip:          "!Ep8pui8Vw2",
		Title:         "",
		Comment:       ">>1000\nworks on my machine",
		Capcode:       "user",
		PosterCountry: "US",
		PosterHash:    "",
		Sticky:        false,
		Locked:        false,
		Deleted:       "0",
		MediaFilename: "screenshot.png",
		MediaOrig:     "1600000000123.png",
		PreviewOrig:   "1600000000123s.jpg",
		MediaHash:     "ZsK2eGbvN5xMn0Qw1A2b3g==",
		MediaSize:     48213,
		MediaW:        1280,
		MediaH:        720,
		PreviewW:      250,
		PreviewH:      140,
		Spoiler:       false,
		Exif:          "",
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	post := samplePost()
	data, err := Pack(post)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}

	got, err := Unpack(data, post.Comment)
	if err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	if *got != *post {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", post, got)
	}
}

func TestPackCollapsesAnonymousName(t *testing.T) {
	post := samplePost()
	post.Name = "Anonymous"
	data, err := Pack(post)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	got, err := Unpack(data, post.Comment)
	if err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	if got.Name != "Anonymous" {
		t.Fatalf("anonymous name should restore, got %q", got.Name)
	}
}

func TestPackIsDeterministic(t *testing.T) {
	post := samplePost()
	first, err := Pack(post)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	second, err := Pack(post)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	if first != second {
		t.Fatalf("pack must be deterministic")
	}
}

func TestUnpackDerivesOpFromNums(t *testing.T) {
	post := samplePost()
	post.Num = post.ThreadNum
	post.Op = true
	data, err := Pack(post)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	got, err := Unpack(data, post.Comment)
	if err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	if !got.Op {
		t.Fatalf("num==thread_num should decode as op")
	}
}

func TestUnpackRejectsShortTuple(t *testing.T) {
	// 旧版编码会缺字段；必须报错而不是静默错位
	data, err := Pack(samplePost())
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	if _, err := Unpack(data[:len(data)/2], ""); err == nil {
		t.Fatalf("truncated payload should fail")
	}
}

func TestUnpackRejectsBadBase64(t *testing.T) {
	if _, err := Unpack("not base64!!!", ""); err == nil {
		t.Fatalf("invalid base64 should fail")
	}
}

func TestUnpackRestoresCapcode(t *testing.T) {
	post := samplePost()
	post.Capcode = "moderator"
	data, err := Pack(post)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	got, err := Unpack(data, post.Comment)
	if err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	if got.Capcode != "moderator" {
		t.Fatalf("capcode want moderator got %q", got.Capcode)
	}
}
