package repository

import "context"

// 同じキーのリクエストを1回だけ通すための約束
type IdempotencyStore interface {
	// 初めてのキーならtrue。既に使われていればfalse。
	Claim(ctx context.Context, key string) (bool, error)

	// 処理が失敗したときにキーを解放する
	Release(ctx context.Context, key string) error
}
