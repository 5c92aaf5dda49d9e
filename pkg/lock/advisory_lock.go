package lock

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GenerateLockID は文字列からアドバイザリロックIDを生成します
func GenerateLockID(parts ...string) int64 {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
	}
	hash := h.Sum(nil)

	// ハッシュの最初の8バイトをint64として使用
	var id int64
	for i := range 8 {
		id = (id << 8) | int64(hash[i])
	}

	return id
}

// PostgresLocker はPostgreSQLのセッションスコープのアドバイザリロックを提供します
// バックフィルのように外部API呼び出しを含む長い処理はトランザクションで
// 囲めないため、専用接続上のpg_try_advisory_lockで排他します
type PostgresLocker struct {
	pool *pgxpool.Pool
}

// NewPostgresLocker は新しいPostgresLockerを作成します
func NewPostgresLocker(pool *pgxpool.Pool) *PostgresLocker {
	return &PostgresLocker{pool: pool}
}

// TryLock はキーに対応するロックの取得を試みます（ブロックしない）
// 取得できた場合はロックを解放する関数を返します。別プロセスが保持中の
// 場合は acquired=false を返します。
func (l *PostgresLocker) TryLock(ctx context.Context, key string) (release func(), acquired bool, err error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection for advisory lock: %w", err)
	}

	lockID := GenerateLockID(key)
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("failed to try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		// 接続を返す前にロックを解放する。接続が死んでいた場合は
		// セッション終了と共にロックも消えるため無視してよい
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID)
		conn.Release()
	}
	return release, true, nil
}
