package chunker

import "github.com/poiesic/splitembed/core"

// Default chunking parameters, in the configured length unit.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 20
)

// Settings bounds chunk length and the overlap carried between neighbors.
type Settings struct {
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// DefaultSettings returns the default chunk size and overlap.
func DefaultSettings() Settings {
	return Settings{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// Validate requires ChunkSize >= 1 and 0 <= ChunkOverlap < ChunkSize.
// Errors wrap core.ErrInvalidConfig.
func (s Settings) Validate() error {
	return core.ValidateChunkSettings(s.ChunkSize, s.ChunkOverlap)
}
