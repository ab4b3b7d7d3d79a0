package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/psykeus/fabpreview/pkg/math3d"
)

// MoveType classifies a toolpath segment.
type MoveType int

const (
	MoveRapid MoveType = iota // G0
	MoveCut                   // G1 (default motion mode)
	MoveArc                   // G2 / G3
)

// String implements fmt.Stringer for diagnostics.
func (t MoveType) String() string {
	switch t {
	case MoveRapid:
		return "rapid"
	case MoveCut:
		return "cut"
	case MoveArc:
		return "arc"
	}
	return "unknown"
}

// GcodeSegment is one motion in toolpath replay order.
type GcodeSegment struct {
	Type      MoveType
	Start     math3d.Vec3
	End       math3d.Vec3
	Center    math3d.Vec3 // arc center (Start + I/J offset); valid when HasCenter
	HasCenter bool
	Clockwise bool // G2
}

// Toolpath is the G-code parser output: segments plus bounds and cumulative
// distance statistics. An empty or move-less file yields a Toolpath with
// zero segments rather than an error.
type Toolpath struct {
	Segments []GcodeSegment
	Bounds   math3d.Bounds

	RapidDistance float64
	CutDistance   float64 // linear cuts plus arc chords
	RapidMoves    int
	CutMoves      int
	ArcMoves      int

	// Units is "mm" (G21, default) or "inches" (G20). Coordinates are kept
	// in file units; no rescaling is applied.
	Units string
}

// ParseGcode stream-parses a G-code buffer line by line, tracking modal
// positioning (G90/G91) and unit (G20/G21) state. Any line carrying X/Y/Z
// words produces a segment classified by the current motion mode.
func ParseGcode(data []byte) (*Toolpath, error) {
	tp := &Toolpath{Units: "mm"}

	var (
		pos        math3d.Vec3
		absolute   = true
		motion     = MoveCut // G1 is the default motion mode
		arcCW      bool
		haveBounds bool
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := stripGcodeComments(sc.Text())
		if line == "" {
			continue
		}
		words := tokenizeGcode(line)

		var (
			hasCoord   bool
			target     = math3d.Vec3{}
			sawX, sawY bool
			sawZ       bool
			iOff, jOff float64
			hasI, hasJ bool
		)

		for _, w := range words {
			switch w.letter {
			case 'G':
				switch int(w.value) {
				case 0:
					motion = MoveRapid
				case 1:
					motion = MoveCut
				case 2:
					motion, arcCW = MoveArc, true
				case 3:
					motion, arcCW = MoveArc, false
				case 20:
					tp.Units = "inches"
				case 21:
					tp.Units = "mm"
				case 90:
					absolute = true
				case 91:
					absolute = false
				}
			case 'X':
				target.X, sawX, hasCoord = w.value, true, true
			case 'Y':
				target.Y, sawY, hasCoord = w.value, true, true
			case 'Z':
				target.Z, sawZ, hasCoord = w.value, true, true
			case 'I':
				iOff, hasI = w.value, true
			case 'J':
				jOff, hasJ = w.value, true
			}
		}

		if !hasCoord {
			continue
		}

		// Resolve the absolute end position under the current modal state;
		// unspecified axes hold their previous value.
		end := pos
		if absolute {
			if sawX {
				end.X = target.X
			}
			if sawY {
				end.Y = target.Y
			}
			if sawZ {
				end.Z = target.Z
			}
		} else {
			if sawX {
				end.X += target.X
			}
			if sawY {
				end.Y += target.Y
			}
			if sawZ {
				end.Z += target.Z
			}
		}

		seg := GcodeSegment{Type: motion, Start: pos, End: end}
		if motion == MoveArc {
			seg.Clockwise = arcCW
			if hasI || hasJ {
				seg.Center = math3d.V3(pos.X+iOff, pos.Y+jOff, pos.Z)
				seg.HasCenter = true
			}
		}
		tp.Segments = append(tp.Segments, seg)

		dist := end.Sub(pos).Len()
		switch motion {
		case MoveRapid:
			tp.RapidMoves++
			tp.RapidDistance += dist
		case MoveCut:
			tp.CutMoves++
			tp.CutDistance += dist
		case MoveArc:
			tp.ArcMoves++
			tp.CutDistance += dist
		}

		if !haveBounds {
			tp.Bounds = math3d.Bounds{Min: pos, Max: pos}
			haveBounds = true
		}
		tp.Bounds = tp.Bounds.Extend(pos).Extend(end)
		pos = end
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("gcode: scan: %w", err)
	}

	return tp, nil
}

// stripGcodeComments removes ";" line comments and parenthetical comments.
func stripGcodeComments(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	for {
		open := strings.IndexByte(line, '(')
		if open < 0 {
			break
		}
		shut := strings.IndexByte(line[open:], ')')
		if shut < 0 {
			line = line[:open]
			break
		}
		line = line[:open] + line[open+shut+1:]
	}
	return strings.TrimSpace(line)
}

type gcodeWord struct {
	letter byte
	value  float64
}

// tokenizeGcode splits a cleaned line into letter+number words. Words may
// be run together ("G0X10Y-5") or whitespace-separated.
func tokenizeGcode(line string) []gcodeWord {
	var words []gcodeWord
	s := strings.ToUpper(line)
	for i := 0; i < len(s); {
		c := s[i]
		if c < 'A' || c > 'Z' {
			i++
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == '+' || s[j] == '-' || s[j] == '.' ||
			(s[j] >= '0' && s[j] <= '9')) {
			j++
		}
		if j > i+1 {
			if v, err := strconv.ParseFloat(s[i+1:j], 64); err == nil {
				words = append(words, gcodeWord{letter: c, value: v})
			}
		}
		i = j
	}
	return words
}
