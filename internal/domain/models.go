package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ==================== ENUMS ====================

type UploadStatus string

const (
	UploadStatusQueued     UploadStatus = "queued"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusComplete   UploadStatus = "complete"
	UploadStatusFailed     UploadStatus = "failed"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ==================== ENTITIES ====================

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username     string `gorm:"size:255;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Roles        []Role `gorm:"many2many:role_user;" json:"roles,omitempty"`
}

type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

type OAuthClient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name                 string `gorm:"size:255;not null" json:"name"`
	Secret               string `gorm:"size:100" json:"-"`
	Redirect             string `gorm:"size:2048" json:"redirect"`
	PersonalAccessClient bool   `gorm:"not null;default:false" json:"personal_access_client"`
	PasswordClient       bool   `gorm:"not null;default:false" json:"password_client"`
	Revoked              bool   `gorm:"not null;default:false" json:"revoked"`
}

func (OAuthClient) TableName() string { return "oauth_clients" }

type Artist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string  `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Summary string  `gorm:"type:text" json:"summary,omitempty"`
	Albums  []Album `json:"albums,omitempty"`
}

type Album struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title    string  `gorm:"size:255;not null;index:idx_album_artist_title" json:"title"`
	ArtistID *uint   `gorm:"index:idx_album_artist_title" json:"artist_id,omitempty"`
	Artist   *Artist `json:"artist,omitempty"`
	Media    []Media `gorm:"many2many:album_media;" json:"media,omitempty"`
}

type Media struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title    string   `gorm:"size:255;not null" json:"title"`
	Filename string   `gorm:"size:512;not null" json:"filename"`
	Hash     string   `gorm:"size:64;index" json:"hash"`
	Duration int      `gorm:"default:0" json:"duration"`
	Artists  []Artist `gorm:"many2many:artist_media;" json:"artists,omitempty"`
	Albums   []Album  `gorm:"many2many:album_media;" json:"albums,omitempty"`
}

func (Media) TableName() string { return "media" }

type Upload struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Filename string       `gorm:"size:512;not null" json:"filename"`
	UserID   uint         `gorm:"index" json:"user_id"`
	Status   UploadStatus `gorm:"size:20;not null;default:'queued'" json:"status"`
	MediaID  *uint        `json:"media_id,omitempty"`
	Media    *Media       `json:"media,omitempty"`
	LastLog  string       `gorm:"type:text" json:"last_log,omitempty"`
}

func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Request is one entry in the shared play queue.
type Request struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	MediaID     uint       `gorm:"not null;index" json:"media_id"`
	Media       *Media     `json:"media,omitempty"`
	Users       []User     `gorm:"many2many:request_user;" json:"users,omitempty"`
	RequestedAt time.Time  `gorm:"not null;index" json:"requested_at"`
	PlayedAt    *time.Time `gorm:"index" json:"played_at,omitempty"`
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now()
	}
	return nil
}

// AllModels lists every persisted entity in migration order.
func AllModels() []any {
	return []any{
		&Role{},
		&User{},
		&OAuthClient{},
		&Artist{},
		&Album{},
		&Media{},
		&Upload{},
		&Request{},
	}
}
