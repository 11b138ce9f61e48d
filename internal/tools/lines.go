package tools

import "bytes"

// LineSplitter は任意のチャンクで届くバイト列を行に分割する io.Writer。
//
// 改行で終わった行だけを emit に渡し、末尾の未完成行は次の Write まで保持する。
// Flush は残った未完成行（改行なし）を最後の1行として渡す。
// 行末の \r は取り除くが、空行は捨てない。
type LineSplitter struct {
	buf  []byte
	emit func(string)
}

// NewLineSplitter は emit に行を渡す LineSplitter を返す。
func NewLineSplitter(emit func(string)) *LineSplitter {
	return &LineSplitter{emit: emit}
}

// Write は io.Writer を満たす。エラーは返さない。
func (s *LineSplitter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		s.emit(string(bytes.TrimSuffix(s.buf[:i], []byte{'\r'})))
		s.buf = s.buf[i+1:]
	}
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return len(p), nil
}

// Pending は保持中の未完成行のバイト数。
func (s *LineSplitter) Pending() int { return len(s.buf) }

// Flush は未完成行を吐き出す。
func (s *LineSplitter) Flush() {
	if len(s.buf) == 0 {
		return
	}
	s.emit(string(bytes.TrimSuffix(s.buf, []byte{'\r'})))
	s.buf = nil
}
