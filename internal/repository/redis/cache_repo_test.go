package redis

import (
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheRepo_NilClient(t *testing.T) {
	_, err := NewCacheRepo(nil)
	assert.Error(t, err)
}

func TestCacheRepo_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	repo, err := NewCacheRepo(client)
	require.NoError(t, err)

	var dest map[string]int
	assert.Error(t, repo.GetJSON("gamification:stats:1", &dest))
	assert.Error(t, repo.SetJSON("gamification:stats:1", map[string]int{"level": 2}, time.Minute))
	_, err = repo.SetNX("quizgen:lock:1", 1, time.Minute)
	assert.Error(t, err)

	assert.NoError(t, repo.Delete(), "пустой список ключей не обращается к серверу")
}

func TestCacheRepo_SetJSONRejectsUnencodable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	repo, err := NewCacheRepo(client)
	require.NoError(t, err)

	err = repo.SetJSON("k", make(chan int), time.Minute)
	assert.Error(t, err)
}
