package models

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/camden-git/siteguard/detection"
)

// FaceEmbedding is a user's active enrolled embedding. At most one row exists
// per user; re-enrollment replaces the row instead of updating it.
type FaceEmbedding struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	OrganizationID uint      `gorm:"index;not null" json:"organization_id"`
	EmbeddingData  []byte    `gorm:"not null;column:embedding_data" json:"-"` // little-endian float32 BLOB
	EmbeddingModel string    `gorm:"not null;column:embedding_model" json:"embedding_model"`
	CaptureRelPath string    `json:"capture_path,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (FaceEmbedding) TableName() string {
	return "face_embeddings"
}

// GetEmbedding decodes the BLOB into a vector.
func (fe *FaceEmbedding) GetEmbedding() detection.Embedding {
	if len(fe.EmbeddingData) < 4 {
		return nil
	}
	out := make(detection.Embedding, len(fe.EmbeddingData)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(fe.EmbeddingData[i*4:]))
	}
	return out
}

// SetEmbedding encodes vec into the BLOB column.
func (fe *FaceEmbedding) SetEmbedding(vec detection.Embedding) {
	if len(vec) == 0 {
		fe.EmbeddingData = nil
		return
	}
	fe.EmbeddingData = make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(fe.EmbeddingData[i*4:], math.Float32bits(v))
	}
}
