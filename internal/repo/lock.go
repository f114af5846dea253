package repo

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BranchLock — advisory lock "один run на (project, branch)".
//
// Инвариант "no concurrent runs" для ветки обеспечивается явно, на уровне
// postgres (pg_try_advisory_lock), а не подразумевается хостом. Advisory
// locks привязаны к сессии, поэтому lock держит выделенное соединение
// из пула до Release.
type BranchLock struct {
	conn *pgxpool.Conn
	key  int64
}

// branchLockKey вычисляет 64-битный ключ advisory lock из project + branch.
func branchLockKey(projectID uuid.UUID, branch string) int64 {
	h := fnv.New64a()
	h.Write(projectID[:])
	h.Write([]byte(branch))
	return int64(h.Sum64())
}

// AcquireBranchLock пытается взять lock на (project, branch) без ожидания.
//
// Возвращает (lock, true, nil) при успехе и (nil, false, nil), если lock
// уже держит другой run — вызывающий оставляет run в PENDING и пробует
// на следующем poll (семантика очереди).
func AcquireBranchLock(ctx context.Context, pool *pgxpool.Pool, projectID uuid.UUID, branch string) (*BranchLock, bool, error) {
	key := branchLockKey(projectID, branch)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}

	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	return &BranchLock{conn: conn, key: key}, true, nil
}

// Release освобождает lock и возвращает соединение в пул.
func (l *BranchLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Release()
		l.conn = nil
	}()

	var released bool
	if err := l.conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, l.key).Scan(&released); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	if !released {
		return fmt.Errorf("advisory lock %d was not held", l.key)
	}
	return nil
}
