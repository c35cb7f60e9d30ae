package internal

import (
	"fmt"
	"sync"
)

// Player 連線對應的輕量玩家身分
type Player struct {
	ID     string `json:"id"` // 連線 ID，由傳輸層指派
	Name   string `json:"name"`
	RoomID string `json:"roomId"` // 空字串表示不在任何房間
}

// SessionDirectory 連線目錄：連線 ID 到玩家身分的映射
//
// 玩家實例由目錄獨佔持有，對外只交出值拷貝；
// 所有變更都經由 Manager 進行。
type SessionDirectory struct {
	mu      sync.RWMutex
	players map[string]*Player
}

// NewSessionDirectory 創建連線目錄
func NewSessionDirectory() *SessionDirectory {
	return &SessionDirectory{
		players: make(map[string]*Player),
	}
}

// Register 註冊新連線，指派自動編號的預設名稱
//
// 編號取「當前在線人數 + 1」，斷線後編號可能重複使用，
// 顯示名稱本就允許重複，無礙。
func (d *SessionDirectory) Register(connID string) Player {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := &Player{
		ID:   connID,
		Name: fmt.Sprintf("Player %d", len(d.players)+1),
	}
	d.players[connID] = p
	return *p
}

// Get 取得玩家資料的拷貝
func (d *SessionDirectory) Get(connID string) (Player, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, exists := d.players[connID]
	if !exists {
		return Player{}, false
	}
	return *p, true
}

// SetRoom 更新玩家的所在房間（空字串表示離開）
func (d *SessionDirectory) SetRoom(connID, roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, exists := d.players[connID]; exists {
		p.RoomID = roomID
	}
}

// Rename 更新顯示名稱，返回舊名稱供排行榜搬移
func (d *SessionDirectory) Rename(connID, name string) (oldName string, p Player, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	player, exists := d.players[connID]
	if !exists {
		return "", Player{}, false
	}

	oldName = player.Name
	player.Name = name
	return oldName, *player, true
}

// Remove 移除連線（斷線時呼叫）
func (d *SessionDirectory) Remove(connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.players, connID)
}

// Count 在線人數
func (d *SessionDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.players)
}
