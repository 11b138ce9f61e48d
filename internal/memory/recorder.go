package memory

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/0x6d61/strikeforge/internal/attack"
)

// Recorder はセッションエンジンのイベントを購読し、
// 発見物をメモリファイルに、終了したセッションの生出力を raw ディレクトリに保存する。
type Recorder struct {
	store  *Store
	rawDir string // 空なら生出力は保存しない
	log    logrus.FieldLogger
}

// NewRecorder は Recorder を返す。
func NewRecorder(store *Store, rawDir string, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{store: store, rawDir: rawDir, log: log}
}

// Run は events が閉じられるか ctx が終わるまでイベントを処理する。
func (r *Recorder) Run(ctx context.Context, events <-chan attack.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			r.Handle(e)
		case <-ctx.Done():
			return
		}
	}
}

// Handle は1イベントを処理する。保存の失敗はログに残して続行する。
func (r *Recorder) Handle(e attack.Event) {
	log := r.log.WithFields(logrus.Fields{"session": e.SessionID, "target": e.Target})
	switch e.Type {
	case attack.EventCredential, attack.EventVulnerability, attack.EventPath, attack.EventService:
		if e.Finding == nil {
			return
		}
		if err := r.store.Record(e.Target, FromFinding(*e.Finding)); err != nil {
			log.WithError(err).Warn("failed to record finding")
		}
	case attack.EventComplete:
		if r.rawDir == "" || e.Result == nil {
			return
		}
		res := e.Result
		header := map[string]string{
			"Session":  res.SessionID,
			"Vector":   res.Vector,
			"Category": string(res.Category),
			"Target":   fmt.Sprintf("%s:%d", res.Target, res.Port),
			"Status":   string(res.Status),
			"Success":  fmt.Sprintf("%t", res.Success),
		}
		path, err := SaveRawOutput(r.rawDir, res.Target, res.Vector, header, res.Output)
		if err != nil {
			log.WithError(err).Warn("failed to save raw output")
			return
		}
		log.WithField("path", path).Debug("raw output saved")
	}
}
