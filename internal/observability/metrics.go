// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreatedTotal counts created posts by type.
	PostsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_posts_created_total",
		Help: "Total number of posts created, by post type",
	}, []string{"type"})

	// PostsDeletedTotal counts soft-deleted posts.
	PostsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plume_posts_deleted_total",
		Help: "Total number of posts soft-deleted",
	})

	// PostViewsTotal counts recorded post views.
	PostViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plume_post_views_total",
		Help: "Total number of post view increments",
	})

	// SearchQueriesTotal counts full-text search requests.
	SearchQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plume_search_queries_total",
		Help: "Total number of post search queries",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_redis_error_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
