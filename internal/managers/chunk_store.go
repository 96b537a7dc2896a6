package managers

import (
	"sort"
	"sync"

	"github.com/lorekeep/lorekeep/internal/domain"
)

// ChunkStore is the in-memory home of knowledge bases, files, and
// chunks. Values are copied in and out, so callers never share mutable
// state with the store. A file's chunk slice is only ever replaced
// wholesale under the write lock, which means a reader holds either
// the complete old chunk list or the complete new one, never a mix.
type ChunkStore struct {
	mu sync.RWMutex

	knowledgeBases map[string]domain.KnowledgeBase
	files          map[string]domain.KnowledgeFile

	// fileIDsByKnowledgeBase preserves submission order per base, which
	// fixes the scan order for retrieval and listing.
	fileIDsByKnowledgeBase map[string][]string
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		knowledgeBases:         make(map[string]domain.KnowledgeBase),
		files:                  make(map[string]domain.KnowledgeFile),
		fileIDsByKnowledgeBase: make(map[string][]string),
	}
}

func (s *ChunkStore) PutKnowledgeBase(kb domain.KnowledgeBase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.knowledgeBases[kb.ID] = kb
}

func (s *ChunkStore) GetKnowledgeBase(knowledgeBaseID string) (domain.KnowledgeBase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kb, ok := s.knowledgeBases[knowledgeBaseID]

	return kb, ok
}

func (s *ChunkStore) ListKnowledgeBases() []domain.KnowledgeBase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	knowledgeBases := make([]domain.KnowledgeBase, 0, len(s.knowledgeBases))

	for _, kb := range s.knowledgeBases {
		knowledgeBases = append(knowledgeBases, kb)
	}

	sort.Slice(knowledgeBases, func(i, j int) bool {
		if knowledgeBases[i].CreatedAt.Equal(knowledgeBases[j].CreatedAt) {
			return knowledgeBases[i].ID < knowledgeBases[j].ID
		}

		return knowledgeBases[i].CreatedAt.Before(knowledgeBases[j].CreatedAt)
	})

	return knowledgeBases
}

// DeleteKnowledgeBase removes the base and cascades to every file it
// owns. Returns the number of removed files.
func (s *ChunkStore) DeleteKnowledgeBase(knowledgeBaseID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.knowledgeBases[knowledgeBaseID]; !ok {
		return 0, false
	}

	delete(s.knowledgeBases, knowledgeBaseID)

	fileIDs := s.fileIDsByKnowledgeBase[knowledgeBaseID]
	for _, fileID := range fileIDs {
		delete(s.files, fileID)
	}

	delete(s.fileIDsByKnowledgeBase, knowledgeBaseID)

	return len(fileIDs), true
}

func (s *ChunkStore) PutFile(file domain.KnowledgeFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[file.ID]; !exists {
		s.fileIDsByKnowledgeBase[file.KnowledgeBaseID] = append(s.fileIDsByKnowledgeBase[file.KnowledgeBaseID], file.ID)
	}

	s.files[file.ID] = file
}

func (s *ChunkStore) GetFile(fileID string) (domain.KnowledgeFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[fileID]

	return file, ok
}

// UpdateFile applies apply to the stored copy under the write lock and
// returns the result. Chunk swaps go through here so they are atomic
// with respect to concurrent readers.
func (s *ChunkStore) UpdateFile(fileID string, apply func(file *domain.KnowledgeFile)) (domain.KnowledgeFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[fileID]
	if !ok {
		return domain.KnowledgeFile{}, false
	}

	apply(&file)
	s.files[fileID] = file

	return file, true
}

func (s *ChunkStore) DeleteFile(fileID string) (domain.KnowledgeFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[fileID]
	if !ok {
		return domain.KnowledgeFile{}, false
	}

	delete(s.files, fileID)

	fileIDs := s.fileIDsByKnowledgeBase[file.KnowledgeBaseID]
	for i, id := range fileIDs {
		if id == fileID {
			s.fileIDsByKnowledgeBase[file.KnowledgeBaseID] = append(fileIDs[:i], fileIDs[i+1:]...)
			break
		}
	}

	return file, true
}

// ListFiles returns the base's files in submission order.
func (s *ChunkStore) ListFiles(knowledgeBaseID string) []domain.KnowledgeFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fileIDs := s.fileIDsByKnowledgeBase[knowledgeBaseID]

	files := make([]domain.KnowledgeFile, 0, len(fileIDs))

	for _, fileID := range fileIDs {
		if file, ok := s.files[fileID]; ok {
			files = append(files, file)
		}
	}

	return files
}

func (s *ChunkStore) CountFiles(knowledgeBaseID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.fileIDsByKnowledgeBase[knowledgeBaseID])
}
