// Package internal 實現了一個即時多人教育遊戲服務器。
//
// 支援四種雙人對戰小遊戲：化學方程式配平、拋體瞄準、邏輯閘
// 組合與向量合成。每種遊戲共享同一套房間、配對與計分基礎設施，
// 只在題目生成與勝負判定上分化。
//
// 核心功能
//
// 房間與配對：
//   - 按遊戲變體自動配對（找開放房間，否則開新房）
//   - 每房固定兩人，湊滿即開始回合
//   - 對手離開強制結束回合，房間保留等待新對手
//   - 分出勝負後延遲自動重開下一回合
//
// # WebSocket 通訊
//
// 實現了即時雙向通訊機制：
//   - 支援心跳檢測（Ping/Pong，54s/60s）
//   - 大廳廣播、房間組播與私下回覆
//   - 緩衝 channel 異步發送，慢客戶端不拖累他人
//
// 併發安全設計
//
// 採用了多層次的併發控制策略：
//   - 房間級讀寫鎖：提交、判定與勝者寫入在同一臨界區，
//     保證每回合至多一名勝者
//   - 固定鎖序：註冊表鎖在外、房間鎖在內，目錄與排行榜為葉鎖
//   - 快照廣播：對外只交出深拷貝，發布不持鎖
//
// 架構設計
//
// 系統採用分層架構設計：
//   - Handler 層：HTTP 輔助面（探測、管理、只讀查詢）
//   - Manager 層：配對、回合生命週期與排行榜協調
//   - WebSocketHub 層：連接管理與事件收發
//   - Room 層：封裝單一房間的回合狀態機
//   - Variant 層：各遊戲變體的題目生成與勝負判定
//
// 每層都有明確的職責邊界，透過介面進行交互，便於測試與擴展。
//
// 配置選項
//
// 支援配置文件（config.yaml）與命令行覆蓋：
//   - -config：配置文件路徑
//   - -port：服務監聽端口（預設 3000）
//   - -log-level：日誌級別（debug/info/warn/error）
//   - -log-format：日誌格式（text/json）
package internal
