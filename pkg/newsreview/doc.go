// Package newsreview reviews self-media article drafts and publishes the
// approved ones.
//
// A draft moves through the Status state machine. ReviewArticle is the
// automatic path: manually approved drafts and scheduled drafts whose
// publish time has passed are published directly, drafts pending the
// automatic scan are checked against the sensitive word dictionary and
// either rejected or queued for manual review. DecideManually is the
// moderator path.
//
// Publication creates the article, its configuration and its content in the
// publishing domain and marks the draft published. These writes span
// services that do not share a transaction, so they run as a saga with
// compensating deletes. The search index document is written afterwards on
// a best-effort basis and retried in the background when it fails.
//
// Remote capabilities are expressed as small interfaces (WemediaStore,
// ArticleStore, ChannelStore, SearchIndex). In-memory and Postgres
// implementations live under repo/, an Elasticsearch projection under index/.
package newsreview
