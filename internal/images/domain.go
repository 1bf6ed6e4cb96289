// Package images stores uploaded binaries in S3-compatible object storage
// and their metadata in postgres, scoped per tenant.
package images

import "time"

// Image is the metadata row for one stored object.
type Image struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"companyId"`
	UserID       int64     `json:"userId"`
	ObjectKey    string    `json:"-"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}
