// Package model はドメインモデルを定義する。
package model

import "time"

// Article は学校ページに投稿される記事を表す。
// SchoolIDとOwnerIDは作成後に変更されない。
type Article struct {
	ID        int64
	SchoolID  int64
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Feed は記事が受信者に配達された記録を表す。
// 記事作成時のファンアウトでのみ作成され、以後更新も削除もされない
// （記事削除時のCASCADEを除く）。
type Feed struct {
	ArticleID     int64
	ReceiverID    string
	DateDelivered time.Time
}

// FanOutResult は1記事分のファンアウト結果を表す。
type FanOutResult struct {
	ArticleID   int64
	SchoolID    int64
	Subscribers int // スナップショット時点の購読者数
	Delivered   int // 新規に作成された配達記録数
}

// DeliveryReport は記事の作成者に見せる配達状況。受信者が誰かは含めない。
type DeliveryReport struct {
	ArticleID int64
	Receivers int
}
