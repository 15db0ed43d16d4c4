package db

import (
	"sync"
)

// Role 连接角色
type Role string

const (
	RoleQuery       Role = "query"
	RoleModeration  Role = "moderation"
	RoleArchivepost Role = "archivepost"
)

// PoolsConfig 各角色连接的配置；版务与存档发帖 DSN 为空时复用主 DSN
type PoolsConfig struct {
	Type    string
	DSN     string
	ModDSN  string
	ArchDSN string
	Pool    PoolConfig
}

// Pools 按角色惰性构建的连接集合
type Pools struct {
	cfg PoolsConfig

	mu      sync.Mutex
	clients map[Role]*Client
}

// NewPools 创建连接集合；不立即建立任何连接
func NewPools(cfg PoolsConfig) *Pools {
	return &Pools{
		cfg:     cfg,
		clients: make(map[Role]*Client),
	}
}

// Get 返回角色对应的客户端，首次访问时建立连接
func (p *Pools) Get(role Role) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[role]; ok {
		return client, nil
	}
	gdb, err := Open(p.cfg.Type, p.dsnFor(role), p.cfg.Pool)
	if err != nil {
		return nil, err
	}
	client := NewClient(gdb, p.cfg.Type)
	p.clients[role] = client
	return client, nil
}

// Close 关闭所有已建立的连接；重复调用无副作用
func (p *Pools) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for role, client := range p.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.clients, role)
	}
	return firstErr
}

func (p *Pools) dsnFor(role Role) string {
	switch role {
	case RoleModeration:
		if p.cfg.ModDSN != "" {
			return p.cfg.ModDSN
		}
	case RoleArchivepost:
		if p.cfg.ArchDSN != "" {
			return p.cfg.ArchDSN
		}
	}
	return p.cfg.DSN
}
