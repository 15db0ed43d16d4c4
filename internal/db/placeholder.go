package db

import (
	"strconv"
	"strings"
)

// PlaceholderGen 按方言生成 SQL 占位符；Postgres 的生成器带编号状态，
// 每条语句应使用新的生成器实例
type PlaceholderGen interface {
	// Qty 返回下一个占位符
	Qty() string
	// Size 返回 n 个占位符，逗号连接
	Size(n int) string
}

// NewPlaceholderGen 按数据库类型创建占位符生成器
func NewPlaceholderGen(dbType string) PlaceholderGen {
	if normalizeType(dbType) == "postgres" {
		return &dollarGen{}
	}
	return questionGen{}
}

type questionGen struct{}

func (questionGen) Qty() string {
	return "?"
}

func (questionGen) Size(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type dollarGen struct {
	n int
}

func (g *dollarGen) Qty() string {
	g.n++
	return "$" + strconv.Itoa(g.n)
}

func (g *dollarGen) Size(n int) string {
	if n <= 0 {
		return ""
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, g.Qty())
	}
	return strings.Join(parts, ",")
}
