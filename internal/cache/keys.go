package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	postKeyPrefix = "post:%d"
	userKeyPrefix = "user:%d"
	// postsFirstPageKey caches only the default first listing page; deeper
	// pages and filtered listings always hit the store.
	postsFirstPageKey = "posts:page1"
)

const (
	// PostTTL is short: view counters advance on every read and the cached
	// copy is allowed to lag by at most this much.
	PostTTL  = 1 * time.Minute
	UserTTL  = 5 * time.Minute
	ListTTL  = 30 * time.Second
)

func PostKey(postID uint) string {
	return fmt.Sprintf(postKeyPrefix, postID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(userKeyPrefix, userID)
}

func PostsFirstPageKey() string {
	return postsFirstPageKey
}

// Invalidate removes a single key; a nil client makes it a no-op.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePost drops the cached copy of one post.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// InvalidatePostLists drops the cached listing page after any mutation that
// can change its contents or order.
func InvalidatePostLists(ctx context.Context) {
	Invalidate(ctx, postsFirstPageKey)
}
