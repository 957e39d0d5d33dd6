package store

import (
	"encoding/base64"
	"encoding/json"
)

// Bookmarks are opaque to callers. The document store resumes from the last
// row's sort key and id; SQL stores carry a page number. A stale bookmark
// may skip or repeat rows if concurrent writes shifted ordering, never an
// error.

// docBookmark marks a resume position in the document store's sorted scan.
type docBookmark struct {
	Field  string      `json:"f,omitempty"`
	Key    interface{} `json:"k,omitempty"`
	LastID string      `json:"id"`
}

// sqlBookmark carries the zero-based page number for offset/limit paging,
// plus the limit the page sequence started with so a caller changing the
// limit mid-sequence cannot shift the stride.
type sqlBookmark struct {
	Page  int `json:"p"`
	Limit int `json:"l,omitempty"`
}

func encodeBookmark(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeDocBookmark(token string) (docBookmark, bool) {
	var bm docBookmark
	if !decodeBookmark(token, &bm) || bm.LastID == "" {
		return docBookmark{}, false
	}
	return bm, true
}

func decodeSQLBookmark(token string) (sqlBookmark, bool) {
	var bm sqlBookmark
	if !decodeBookmark(token, &bm) || bm.Page < 0 {
		return sqlBookmark{}, false
	}
	return bm, true
}

// decodeBookmark tolerates garbage tokens: an undecodable bookmark means
// start from the beginning rather than failing the request.
func decodeBookmark(token string, dest interface{}) bool {
	if token == "" {
		return false
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}
