package attack

import "github.com/0x6d61/strikeforge/internal/parser"

// EventType はセッションエンジンが発行するイベントの種別。
type EventType string

const (
	EventLine          EventType = "line"
	EventCredential    EventType = "credential"
	EventVulnerability EventType = "vulnerability" // high / critical のみ
	EventPath          EventType = "path"
	EventService       EventType = "service"
	EventStatus        EventType = "status"
	EventComplete      EventType = "complete"
)

// Event はセッションから購読者へ送るメッセージ。
// エンジン側は送りっぱなしで、表示や保存は購読者が決める。
type Event struct {
	Type      EventType
	SessionID string
	Vector    string
	Target    string
	Port      int
	Tool      string // 発生元のツール（EventLine / 発見物イベント）

	Line    string          // EventLine
	Finding *parser.Finding // 発見物イベント
	Status  Status          // EventStatus / EventComplete
	Result  *AttackResult   // EventComplete
}
