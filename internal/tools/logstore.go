package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogStore はコマンド単位の実行記録をメモリに保持する。
// セッションの出力ログとは別に「このコマンドの全出力」を後から参照するために使う。
type LogStore struct {
	mu      sync.RWMutex
	records map[string]*RunRecord // key: RunRecord.ID
}

// NewLogStore は空の LogStore を返す。
func NewLogStore() *LogStore {
	return &LogStore{records: make(map[string]*RunRecord)}
}

// Save は RunRecord を保存する。
func (s *LogStore) Save(r *RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
}

// Get はIDで RunRecord を取得する。
func (s *LogStore) Get(id string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// ForTarget はターゲットに関連する全 RunRecord を新しい順で返す。
func (s *LogStore) ForTarget(target string) []*RunRecord {
	return s.filter(func(r *RunRecord) bool { return r.Target == target }, false)
}

// ForSession はセッションの RunRecord を実行順（古い順）で返す。
func (s *LogStore) ForSession(session string) []*RunRecord {
	return s.filter(func(r *RunRecord) bool { return r.Session == session }, true)
}

// DeleteSession はセッションの記録を削除する。
func (s *LogStore) DeleteSession(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.Session == session {
			delete(s.records, id)
		}
	}
}

func (s *LogStore) filter(keep func(*RunRecord) bool, ascending bool) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*RunRecord
	for _, r := range s.records {
		if keep(r) {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if ascending {
			return results[i].StartedAt.Before(results[j].StartedAt)
		}
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results
}

// FullText は指定IDの RunRecord の生出力全文を文字列で返す。
func (s *LogStore) FullText(id string) (string, bool) {
	r, ok := s.Get(id)
	if !ok {
		return "", false
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== %s on %s (ID: %s) ===\n", r.ToolName, r.Target, r.ID))
	for _, line := range r.Lines {
		sb.WriteString(line.Content)
		sb.WriteByte('\n')
	}
	return sb.String(), true
}

// MakeID はツール名・ターゲット・実行時刻から一意IDを生成する。
func MakeID(toolName, target string, t time.Time) string {
	return fmt.Sprintf("%s@%s@%d", toolName, target, t.UnixMicro())
}
