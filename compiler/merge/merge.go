package merge

import (
	"bytes"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Options configures a merge.
type Options struct {
	Syntax Syntax
	// Path is reported in errors and log entries.
	Path   string
	Logger *zap.Logger
}

// Result is the outcome of a merge.
type Result struct {
	Output []byte
	// Warnings lists prior blocks that were dropped, in prior document order.
	Warnings []StaleScope
}

// Merge combines a freshly generated buffer with the prior content of the
// same file. Blocks are matched by Key, and the directive of the prior block
// governs:
//
//   - ignore-orig keeps the prior block verbatim.
//   - comment-orig emits the fresh block and appends prior content that
//     differs as preserved comment lines.
//   - allow-editing merges nested blocks and keeps non-blank user text
//     found between them.
//
// Prior blocks without a fresh counterpart are dropped and reported in
// Result.Warnings. An empty prior yields the fresh buffer unchanged.
func Merge(fresh, prior []byte, opts Options) (*Result, error) {
	if opts.Syntax.Prefix == "" {
		opts.Syntax = Go
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	fd, err := Parse(fresh, opts.Syntax)
	if err != nil {
		return nil, withPath(err, opts.Path)
	}
	if len(bytes.TrimSpace(prior)) == 0 {
		return &Result{Output: fresh}, nil
	}
	pd, err := Parse(prior, opts.Syntax)
	if err != nil {
		return nil, withPath(err, opts.Path)
	}
	m := &merger{
		syn:   opts.Syntax,
		fresh: fd,
		prior: pd,
		used:  make(map[*Block]bool),
	}
	m.region(0, len(fd.Lines), fd.Blocks)
	res := &Result{Output: join(m.out, fd.newline)}
	for _, b := range pd.All() {
		if m.used[b] || (b.Parent != nil && !m.used[b.Parent]) {
			continue
		}
		res.Warnings = append(res.Warnings, StaleScope{Tag: b.Tag, Ordinal: b.Ordinal})
		opts.Logger.Warn("stale scope dropped",
			zap.String("path", opts.Path),
			zap.String("tag", b.Tag),
			zap.Int("ordinal", b.Ordinal),
		)
	}
	return res, nil
}

type merger struct {
	syn   Syntax
	fresh *Document
	prior *Document
	used  map[*Block]bool
	out   []string
}

func (m *merger) emit(lines ...string) {
	m.out = append(m.out, lines...)
}

// region emits fresh lines [from, to) with the given blocks merged.
func (m *merger) region(from, to int, blocks []*Block) {
	cur := from
	for _, b := range blocks {
		m.emit(m.fresh.Lines[cur:b.Start]...)
		m.block(b)
		cur = b.End + 1
	}
	m.emit(m.fresh.Lines[cur:to]...)
}

func (m *merger) block(fb *Block) {
	pb := m.prior.Lookup(fb.Key())
	if pb == nil {
		m.emit(m.fresh.Lines[fb.Start : fb.End+1]...)
		return
	}
	m.used[pb] = true
	switch {
	case pb.Directive == IgnoreOrig, pb.Directive == AllowEditing && len(pb.Children) == 0:
		m.keep(pb)
	case pb.Directive == CommentOrig:
		m.comment(fb, pb)
	default:
		m.edit(fb, pb)
	}
}

// keep emits the prior block verbatim.
func (m *merger) keep(pb *Block) {
	m.markSubtree(pb)
	m.emit(m.prior.Lines[pb.Start : pb.End+1]...)
}

// comment emits the fresh body and keeps the prior body as comments when it
// differs from the fresh one.
func (m *merger) comment(fb, pb *Block) {
	m.markSubtree(pb)
	preserved, body := m.splitPreserved(m.prior.Inner(pb))
	freshBody := m.fresh.Inner(fb)
	if !sameBody(freshBody, body) {
		preserved = append(preserved, m.commentOut(body)...)
	}
	m.emit(m.marker(fb, pb, fb.Start, Start))
	m.emit(freshBody...)
	m.emit(preserved...)
	m.emit(m.marker(fb, pb, fb.End, End))
}

// edit merges the children of an allow-editing block. The text between
// children is user owned: a non-blank prior gap wins over the fresh one.
// Gaps that followed a dropped child are kept at the end of the block.
func (m *merger) edit(fb, pb *Block) {
	lead, gaps := m.gaps(pb)
	freshKeys := make(map[Key]bool, len(fb.Children))
	for _, c := range fb.Children {
		freshKeys[c.Key()] = true
	}

	m.emit(m.marker(fb, pb, fb.Start, Start))
	cur := fb.Start + 1
	var prev *Block
	pick := func(end int) {
		freshGap := m.fresh.Lines[cur:end]
		var priorGap []string
		if prev == nil {
			priorGap = lead
		} else {
			priorGap = gaps[prev.Key()]
		}
		if blank(priorGap) {
			m.emit(freshGap...)
		} else {
			m.emit(priorGap...)
		}
	}
	for _, c := range fb.Children {
		pick(c.Start)
		m.block(c)
		cur = c.End + 1
		prev = c
	}
	pick(fb.End)
	for _, c := range pb.Children {
		if g := gaps[c.Key()]; !freshKeys[c.Key()] && !blank(g) {
			m.emit(g...)
		}
	}
	m.emit(m.marker(fb, pb, fb.End, End))
}

// gaps returns the prior text before the first child and the text after
// each child.
func (m *merger) gaps(pb *Block) (lead []string, after map[Key][]string) {
	after = make(map[Key][]string, len(pb.Children))
	cur := pb.Start + 1
	for i, c := range pb.Children {
		if i == 0 {
			lead = m.prior.Lines[cur:c.Start]
		}
		end := pb.End
		if i+1 < len(pb.Children) {
			end = pb.Children[i+1].Start
		}
		after[c.Key()] = m.prior.Lines[c.End+1 : end]
		cur = end
	}
	return lead, after
}

// marker returns the fresh marker line at index i, rewritten with the prior
// directive when the two differ.
func (m *merger) marker(fb, pb *Block, i int, role Role) string {
	line := m.fresh.Lines[i]
	if fb.Directive == pb.Directive {
		return line
	}
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	return indent + m.syn.Format(Marker{Role: role, Directive: pb.Directive, Tag: fb.Tag})
}

func (m *merger) markSubtree(b *Block) {
	m.used[b] = true
	for _, c := range b.Children {
		m.markSubtree(c)
	}
}

func (m *merger) splitPreserved(lines []string) (preserved, body []string) {
	p := m.syn.Preserved()
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), p) {
			preserved = append(preserved, l)
		} else {
			body = append(body, l)
		}
	}
	return preserved, body
}

func (m *merger) commentOut(lines []string) []string {
	lines = trimBlank(lines)
	out := make([]string, 0, len(lines))
	p := m.syn.Preserved()
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			out = append(out, p)
			continue
		}
		out = append(out, p+" "+l)
	}
	return out
}

func sameBody(a, b []string) bool {
	return slices.Equal(normalize(a), normalize(b))
}

func normalize(lines []string) []string {
	lines = trimBlank(lines)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, " \t")
	}
	return out
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func blank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

func withPath(err error, path string) error {
	if ce, ok := err.(*ConflictError); ok && ce.Path == "" && path != "" {
		ce.Path = path
	}
	return err
}
