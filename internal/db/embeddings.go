package db

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

// ItemEmbedding pairs an item ID with its deserialized embedding vector.
type ItemEmbedding struct {
	ItemID    int64
	Embedding []float32
	Model     string
}

// EmbeddingToBytes serializes a vector as little-endian float32 bytes.
// Byte length is always dimension × 4.
func EmbeddingToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(f))
	}
	return out
}

// BytesToEmbedding converts a little-endian byte slice to []float32.
// Each 4 bytes = one LE float32. Short trailing chunk → 0.0.
func BytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if len(data)%4 != 0 {
		n++ // include partial chunk as 0.0
	}
	result := make([]float32, n)
	for i := 0; i < len(data)/4; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

// UpsertEmbedding stores the vector for an item, replacing any previous one.
// The model tag allows a mixed-model corpus to be detected later.
func (d *DB) UpsertEmbedding(itemID int64, vector []float32, model string) error {
	_, err := d.conn.Exec(`
		INSERT INTO embeddings (item_id, vector, dim, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			vector = excluded.vector,
			dim = excluded.dim,
			model = excluded.model,
			created_at = excluded.created_at
	`, itemID, EmbeddingToBytes(vector), len(vector), model, nowMillis())
	if err != nil {
		return fmt.Errorf("upserting embedding for item %d: %w", itemID, err)
	}
	return nil
}

// GetEmbedding returns the embedding for a single item, or nil if not set.
func (d *DB) GetEmbedding(itemID int64) ([]float32, error) {
	var data []byte
	err := d.conn.QueryRow(`SELECT vector FROM embeddings WHERE item_id = ?`, itemID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return BytesToEmbedding(data), nil
}

// AllEmbeddings returns all (item_id, vector, model) triples.
func (d *DB) AllEmbeddings() ([]ItemEmbedding, error) {
	rows, err := d.conn.Query(`SELECT item_id, vector, model FROM embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ItemEmbedding
	for rows.Next() {
		var id int64
		var data []byte
		var model string
		if err := rows.Scan(&id, &data, &model); err != nil {
			return nil, err
		}
		result = append(result, ItemEmbedding{
			ItemID:    id,
			Embedding: BytesToEmbedding(data),
			Model:     model,
		})
	}
	return result, rows.Err()
}

// CountEmbeddings returns the number of stored vectors.
func (d *DB) CountEmbeddings() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, err
}
