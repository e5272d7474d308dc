package comment

import "time"

// Comment is attached to any entity identified by (ReferenceType,
// ReferenceID). Replies point at their parent and must share its reference.
type Comment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"size:36;not null;index" json:"userId"`
	ReferenceType   string    `gorm:"size:32;not null;index:idx_comment_ref" json:"referenceType"`
	ReferenceID     string    `gorm:"size:64;not null;index:idx_comment_ref" json:"referenceId"`
	ParentCommentID *string   `gorm:"size:36;index" json:"parentCommentId"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	Likes           int64     `gorm:"not null;default:0" json:"likes"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil && *c.ParentCommentID != ""
}

func (c *Comment) SameScope(other *Comment) bool {
	return c.ReferenceType == other.ReferenceType && c.ReferenceID == other.ReferenceID
}
