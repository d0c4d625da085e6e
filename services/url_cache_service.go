package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

const (
	presignedURLExpiration = 15 * time.Minute
	// links are dropped before they expire so clients never get a dead one
	readURLCacheTTL = 12 * time.Minute
)

type URLCacheServiceProvider interface {
	GetReadURL(ctx context.Context, objectKey string) (string, error)
	Forget(ctx context.Context, objectKey string) error
}

// URLCacheService hands out read links for garment photos, presigning on a
// miss and reusing the link for readURLCacheTTL.
type URLCacheService struct {
	links      *cache.LoadableCache[string]
	presigner  AWSServiceProvider
	bucketName string
}

func NewURLCacheService(awsService AWSServiceProvider, bucketName string) (*URLCacheService, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	service := &URLCacheService{presigner: awsService, bucketName: bucketName}
	service.links = cache.NewLoadable[string](
		service.presign,
		cache.New[string](ristretto_store.NewRistretto(ristrettoCache)),
	)
	log.Printf("[URLCache] Ready for bucket %q\n", bucketName)
	return service, nil
}

func (s *URLCacheService) presign(ctx context.Context, key any) (string, []store.Option, error) {
	objectKey, ok := key.(string)
	if !ok {
		return "", nil, fmt.Errorf("URL cache key must be a string, got %T", key)
	}
	log.Printf("[URLCache] Miss for %s, presigning\n", objectKey)
	url, err := s.presigner.GetPresignedR2FileReadURL(ctx, s.bucketName, objectKey)
	return url, []store.Option{store.WithExpiration(readURLCacheTTL)}, err
}

func (s *URLCacheService) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return s.links.Get(ctx, objectKey)
}

// Forget drops the cached link of a photo that no longer exists.
func (s *URLCacheService) Forget(ctx context.Context, objectKey string) error {
	if objectKey == "" {
		return nil
	}
	return s.links.Delete(ctx, objectKey)
}
