// Package elasticsink ships log batches to Elasticsearch through the
// _bulk API, as alternating index-action and ECS-flavored document lines
// of newline-delimited JSON.
package elasticsink
