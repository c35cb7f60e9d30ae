package internal

import (
	"sort"
	"sync"
)

// ScoreEntry 排行榜的一個名次
type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Leaderboard 跨房間、跨變體共享的全局勝場排行榜
//
// 以顯示名稱為鍵：改名時把舊鍵的分數搬到新鍵。
// 新鍵已有分數時直接覆蓋（不累加）——這是沿用既有行為的產品決策。
// 生命週期為整個程序，不做持久化；重置是公開的管理操作。
type Leaderboard struct {
	mu     sync.RWMutex
	scores map[string]int // 顯示名稱 -> 累計勝場
}

// NewLeaderboard 創建空排行榜
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		scores: make(map[string]int),
	}
}

// RecordWin 將指定名稱的勝場加一（不存在則從 0 起算）
func (l *Leaderboard) RecordWin(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scores[name]++
}

// Rename 把舊名稱的分數搬移到新名稱
func (l *Leaderboard) Rename(oldName, newName string) {
	if oldName == newName {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	score, exists := l.scores[oldName]
	if !exists {
		return
	}
	l.scores[newName] = score
	delete(l.scores, oldName)
}

// TopN 取分數最高的前 n 名（分數相同時順序不保證）
func (l *Leaderboard) TopN(n int) []ScoreEntry {
	l.mu.RLock()
	entries := make([]ScoreEntry, 0, len(l.scores))
	for name, score := range l.scores {
		entries = append(entries, ScoreEntry{Name: name, Score: score})
	}
	l.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Score 查詢單一名稱的分數（測試與統計用）
func (l *Leaderboard) Score(name string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	score, exists := l.scores[name]
	return score, exists
}

// Reset 清空排行榜
func (l *Leaderboard) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scores = make(map[string]int)
}

// Size 目前有分數記錄的名稱數量
func (l *Leaderboard) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.scores)
}
