package chain

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klingnet-core/klingnet-core/internal/log"
	"github.com/klingnet-core/klingnet-core/pkg/block"
)

const blockFilePattern = "block_%07d.dat"

// BlockStore persists blocks as length-prefixed JSON files, one per block
// index, per spec §4.G. It is the chain's sole recovery source at startup:
// a populated store is loaded and structurally revalidated (see
// ValidateChain) before being adopted.
type BlockStore struct {
	mu  sync.Mutex
	dir string
}

// NewBlockStore opens (creating if needed) a flat-file block store rooted
// at dir.
func NewBlockStore(dir string) (*BlockStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create block store dir: %w", err)
	}
	return &BlockStore{dir: dir}, nil
}

func (s *BlockStore) path(index uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf(blockFilePattern, index))
}

// Save serializes blk as a 4-byte big-endian length prefix followed by its
// JSON encoding, and writes it to block_<index:07>.dat. The write goes to a
// temp file and is renamed into place so a crash mid-write never leaves a
// half-written block for LoadAll to trip over.
func (s *BlockStore) Save(blk *block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", blk.Header.Index, err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(body))); err != nil {
		return fmt.Errorf("encode block %d length: %w", blk.Header.Index, err)
	}
	buf.Write(body)

	final := s.path(blk.Header.Index)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write block %d: %w", blk.Header.Index, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("commit block %d: %w", blk.Header.Index, err)
	}
	return nil
}

// Load deserializes the block at index, reporting found=false if no file
// exists for it.
func (s *BlockStore) Load(index uint64) (blk *block.Block, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(index))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read block %d: %w", index, err)
	}

	b, err := decodeBlockFile(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode block %d: %w", index, err)
	}
	return b, true, nil
}

// LoadAll enumerates every block_*.dat file, deserializes it, and returns
// the blocks sorted by index. A file that fails to decode is logged and
// skipped rather than failing the whole load, per spec §4.G.
func (s *BlockStore) LoadAll() ([]*block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read block store dir: %w", err)
	}

	var blocks []*block.Block
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "block_") || !strings.HasSuffix(name, ".dat") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			log.Storage.Warn().Err(err).Str("file", name).Msg("skipping unreadable block file")
			continue
		}
		b, err := decodeBlockFile(data)
		if err != nil {
			log.Storage.Warn().Err(err).Str("file", name).Msg("skipping corrupt block file")
			continue
		}
		blocks = append(blocks, b)
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Header.Index < blocks[j].Header.Index })
	return blocks, nil
}

func decodeBlockFile(data []byte) (*block.Block, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(data[:4])
	body := data[4:]
	if uint32(len(body)) != n {
		return nil, fmt.Errorf("length mismatch: header says %d, file has %d", n, len(body))
	}
	var blk block.Block
	if err := json.Unmarshal(body, &blk); err != nil {
		return nil, err
	}
	return &blk, nil
}

// LatestIndex returns the highest block index present, or found=false if
// the store is empty.
func (s *BlockStore) LatestIndex() (index uint64, found bool, err error) {
	blocks, err := s.LoadAll()
	if err != nil {
		return 0, false, err
	}
	if len(blocks) == 0 {
		return 0, false, nil
	}
	return blocks[len(blocks)-1].Header.Index, true, nil
}

// Count returns the number of blocks currently on disk.
func (s *BlockStore) Count() (int, error) {
	blocks, err := s.LoadAll()
	if err != nil {
		return 0, err
	}
	return len(blocks), nil
}

// Remove deletes the file for the given index, if present.
func (s *BlockStore) Remove(index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(index)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove block %d: %w", index, err)
	}
	return nil
}

// Clear deletes every block file in the store.
func (s *BlockStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read block store dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "block_") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}
