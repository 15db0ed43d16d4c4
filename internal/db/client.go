package db

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"gorm.io/gorm"
)

// Client 面向板块分表的底层查询客户端
type Client struct {
	gdb    *gorm.DB
	dbType string

	closeOnce sync.Once
	closeErr  error
}

// NewClient 创建查询客户端
func NewClient(gdb *gorm.DB, dbType string) *Client {
	return &Client{gdb: gdb, dbType: normalizeType(dbType)}
}

// Gorm 返回底层 gorm 连接，供 ORM 管理的表使用
func (c *Client) Gorm() *gorm.DB {
	return c.gdb
}

// Type 返回数据库类型
func (c *Client) Type() string {
	return c.dbType
}

// Placeholder 返回方言对应的占位符生成器；每条语句用一个新实例
func (c *Client) Placeholder() PlaceholderGen {
	return NewPlaceholderGen(c.dbType)
}

// QueryRows 执行查询并返回行元组
func (c *Client) QueryRows(ctx context.Context, query string, args ...interface{}) ([][]interface{}, error) {
	rows, cols, err := c.rawQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]interface{}
	for rows.Next() {
		values, err := scanRow(rows, len(cols))
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// MapRows 查询结果集；Columns 保留结果列顺序
type MapRows struct {
	Columns []string
	Rows    []map[string]interface{}
}

// QueryMaps 执行查询并返回按列名索引的行
func (c *Client) QueryMaps(ctx context.Context, query string, args ...interface{}) (*MapRows, error) {
	rows, cols, err := c.rawQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &MapRows{Columns: cols}
	for rows.Next() {
		values, err := scanRow(rows, len(cols))
		if err != nil {
			return nil, err
		}
		m := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			m[col] = values[i]
		}
		result.Rows = append(result.Rows, m)
	}
	return result, rows.Err()
}

// Exec 执行写语句
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.gdb.WithContext(ctx).Exec(query, args...).Error
}

// RunScript 逐条执行以分号分隔的脚本
func (c *Client) RunScript(ctx context.Context, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := c.gdb.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭底层连接；重复调用无副作用
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		sqlDB, err := c.gdb.DB()
		if err != nil {
			c.closeErr = err
			return
		}
		c.closeErr = sqlDB.Close()
	})
	return c.closeErr
}

func (c *Client) rawQuery(ctx context.Context, query string, args ...interface{}) (*sql.Rows, []string, error) {
	rows, err := c.gdb.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, nil, err
	}
	return rows, cols, nil
}

func scanRow(rows *sql.Rows, n int) ([]interface{}, error) {
	values := make([]interface{}, n)
	ptrs := make([]interface{}, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

// IsTransient 判断错误是否为可重试的连接类故障
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "timeout")
}
