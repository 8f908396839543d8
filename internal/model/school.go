// Package model はドメインモデルを定義する。
package model

import "time"

// School は学校を表す。
// OwnerIDは作成したユーザーで、作成後は変更されない。
// 購読者集合は保持せず、subscriptionsテーブルから導出する。
type School struct {
	ID           int64
	OwnerID      string
	Name         string
	Region       RegionCode
	RegionDetail string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subscription はユーザーと学校の購読関係（台帳エントリ）を表す。
// (UserID, SchoolID) の組は同時に1件しか存在しない。
type Subscription struct {
	UserID         string
	SchoolID       int64
	DateSubscribed time.Time
}

// RegionCode は市・道の地域コード（市外局番）を表す。
type RegionCode string

// Region は地域コードと表示名の組。
type Region struct {
	Code  RegionCode
	Label string
}

// regions は許可される地域コードの閉じた集合。順序は表示順を兼ねる。
var regions = []Region{
	{Code: "02", Label: "서울특별시"},
	{Code: "031", Label: "경기도"},
	{Code: "032", Label: "인천광역시"},
	{Code: "033", Label: "강원도"},
	{Code: "041", Label: "충청남도"},
	{Code: "042", Label: "대전광역시"},
	{Code: "043", Label: "충청북도"},
	{Code: "044", Label: "세종특별자치시"},
	{Code: "051", Label: "부산광역시"},
	{Code: "052", Label: "울산광역시"},
	{Code: "053", Label: "대구광역시"},
	{Code: "054", Label: "경상북도"},
	{Code: "055", Label: "경상남도"},
	{Code: "061", Label: "전라남도"},
	{Code: "062", Label: "광주광역시"},
	{Code: "063", Label: "전라북도"},
	{Code: "064", Label: "제주특별자치도"},
}

// Regions は全地域コードを表示順で返す。呼び出し側での変更は内部状態に影響しない。
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// IsValid は地域コードが許可された集合に含まれるかを返す。
func (c RegionCode) IsValid() bool {
	for _, r := range regions {
		if r.Code == c {
			return true
		}
	}
	return false
}

// Label は地域コードの表示名を返す。未知のコードの場合は空文字列を返す。
func (c RegionCode) Label() string {
	for _, r := range regions {
		if r.Code == c {
			return r.Label
		}
	}
	return ""
}
