package repo

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Repo is the persistence gateway for accounts, credentials and both ledgers.
// Cache is optional; when nil every token lookup goes straight to the store.
type Repo struct {
	DB    *gorm.DB
	Cache *redis.Client
}

func New(db *gorm.DB, cache *redis.Client) *Repo {
	return &Repo{DB: db, Cache: cache}
}
