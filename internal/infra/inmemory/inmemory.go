// Package inmemory は go-memdb 上にリポジトリを実装する。
// STORE_DRIVER=memory のときとテストで使う。
package inmemory

import (
	"fmt"

	"github.com/hashicorp/go-memdb"
)

const (
	tableSweet = "sweet"
	tableUser  = "user"
)

type Store struct {
	sweets *SweetRepository
	users  *UserRepository
}

func NewStore() (*Store, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableSweet: {
				Name: tableSweet,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"category": {
						Name:    "category",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "Category", Lowercase: true},
					},
				},
			},
			tableUser: {
				Name: tableUser,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"username": {
						Name:    "username",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Username"},
					},
					"email": {
						Name:    "email",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
		},
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid in-memory schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &Store{
		sweets: &SweetRepository{db: db},
		users:  &UserRepository{db: db},
	}, nil
}

// 同じStoreからは同じインスタンス（IDロックを共有する）を返す
func (s *Store) Sweets() *SweetRepository {
	return s.sweets
}

func (s *Store) Users() *UserRepository {
	return s.users
}
