package hc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/templelinux/temple/cp437"
	"github.com/templelinux/temple/doldoc"
	"github.com/templelinux/temple/templefs"
)

// SourceSegment is a contiguous run of non-directive source text with
// enough provenance for precise diagnostics.
type SourceSegment struct {
	File      string
	StartLine int
	Bytes     []byte
}

// PreprocessEntry follows includes from the entry file and returns the
// ordered source segments, the captured simple #define macros, and the
// per-file DolDoc bins parsed from the payload after each file's first
// NUL byte.
func PreprocessEntry(path, vendorRoot string) ([]SourceSegment, map[string]string, map[string]map[uint32][]byte, error) {
	var segments []SourceSegment
	defines := map[string]string{}
	binsByFile := map[string]map[uint32][]byte{}
	var stack []string

	if err := preprocessFile(path, vendorRoot, &stack, defines, binsByFile, &segments); err != nil {
		return nil, nil, nil, err
	}
	return segments, defines, binsByFile, nil
}

func preprocessFile(
	path, vendorRoot string,
	stack *[]string,
	defines map[string]string,
	binsByFile map[string]map[uint32][]byte,
	out *[]SourceSegment,
) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, seen := range *stack {
		if seen == abs {
			return fmt.Errorf("cyclic include detected: %s", abs)
		}
	}
	*stack = append(*stack, abs)
	defer func() { *stack = (*stack)[:len(*stack)-1] }()

	raw, err := os.ReadFile(abs)
	if err != nil {
		return err
	}

	cutoff := bytes.IndexByte(raw, 0)
	if cutoff < 0 {
		cutoff = len(raw)
	}
	src := raw[:cutoff]
	if cutoff < len(raw) {
		binsByFile[abs] = doldoc.ParseBinTail(raw[cutoff+1:])
	} else {
		binsByFile[abs] = map[uint32][]byte{}
	}

	baseDir := filepath.Dir(abs)
	segStartLine := 1
	lineNo := 1
	var segBytes []byte

	flush := func() {
		if len(segBytes) > 0 {
			*out = append(*out, SourceSegment{File: abs, StartLine: segStartLine, Bytes: segBytes})
			segBytes = nil
		}
	}

	p := 0
	for p < len(src) {
		end := p
		for end < len(src) && src[end] != '\n' {
			end++
		}
		if end < len(src) {
			end++ // include the newline
		}
		line := src[p:end]
		p = end

		trimmed := trimLeftSpace(line)
		if len(trimmed) > 0 && trimmed[0] == '#' {
			directive := append([]byte(nil), trimmed...)
			if bytes.HasPrefix(trimmed, []byte("#define")) {
				for lineEndsWithContinuation(directive) && p < len(src) {
					stripContinuationSuffix(&directive)
					directive = bytes.TrimRight(directive, " \t")
					directive = append(directive, ' ')

					nend := p
					for nend < len(src) && src[nend] != '\n' {
						nend++
					}
					if nend < len(src) {
						nend++
					}
					nextLine := src[p:nend]
					p = nend
					directive = append(directive, trimLeftSpace(nextLine)...)
					if bytes.HasSuffix(nextLine, []byte("\n")) {
						lineNo++
					}
				}
			}

			directiveStr := cp437.DecodeBytes(directive)
			if bytes.HasPrefix(trimmed, []byte("#include")) {
				flush()
				spec, err := parseIncludeSpec(directiveStr)
				if err != nil {
					return err
				}
				includePath, err := templefs.ResolveSource(spec, baseDir, vendorRoot)
				if err != nil {
					return err
				}
				if err := preprocessFile(includePath, vendorRoot, stack, defines, binsByFile, out); err != nil {
					return err
				}
				segStartLine = lineNo + 1
			} else {
				if bytes.HasPrefix(trimmed, []byte("#define")) {
					if name, val, ok := parseDefine(directiveStr); ok {
						defines[name] = val
					}
				}
				flush()
				segStartLine = lineNo + 1
			}
		} else {
			segBytes = append(segBytes, line...)
		}

		if bytes.HasSuffix(line, []byte("\n")) {
			lineNo++
		}
	}

	flush()
	return nil
}

func trimLeftSpace(line []byte) []byte {
	for len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		line = line[1:]
	}
	return line
}

func lineEndsWithContinuation(line []byte) bool {
	end := len(line)
	for end > 0 && (line[end-1] == '\n' || line[end-1] == '\r') {
		end--
	}
	for end > 0 && (line[end-1] == ' ' || line[end-1] == '\t') {
		end--
	}
	return end > 0 && line[end-1] == '\\'
}

func stripContinuationSuffix(line *[]byte) {
	b := *line
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	if len(b) > 0 && b[len(b)-1] == '\\' {
		b = b[:len(b)-1]
	}
	*line = b
}

func parseIncludeSpec(line string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "#include"))
	if strings.HasPrefix(rest, `"`) {
		if end := strings.Index(rest[1:], `"`); end >= 0 {
			return rest[1 : 1+end], nil
		}
	}
	if strings.HasPrefix(rest, "<") {
		if end := strings.Index(rest[1:], ">"); end >= 0 {
			return rest[1 : 1+end], nil
		}
	}
	return "", fmt.Errorf("could not parse include: %s", line)
}

// parseDefine captures simple `#define NAME VALUE` macros. Function-like
// macros are skipped.
func parseDefine(line string) (string, string, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimRight(line, " \t"), "#define"))
	if rest == "" {
		return "", "", false
	}

	end := 0
	for i, ch := range rest {
		if ch == ' ' || ch == '\t' || ch == '(' {
			break
		}
		end = i + len(string(ch))
	}
	if end == 0 {
		return "", "", false
	}
	name := rest[:end]
	if strings.HasPrefix(rest[end:], "(") {
		return "", "", false
	}

	value := strings.TrimSpace(rest[end:])
	if before, _, found := strings.Cut(value, "//"); found {
		value = strings.TrimSpace(before)
	}
	if value == "" {
		value = "0"
	}
	return name, value, true
}

// CompileSegments lexes every segment under the shared macro table and
// parses the combined token stream into a Program.
func CompileSegments(
	segments []SourceSegment,
	macros map[string]string,
	binsByFile map[string]map[uint32][]byte,
) (*Program, error) {
	var tokens []Token
	for i, seg := range segments {
		lex := NewLexer(seg.File, seg.Bytes, seg.StartLine, macros)
		toks, err := lex.Tokens()
		if err != nil {
			return nil, err
		}
		if i < len(segments)-1 {
			toks = toks[:len(toks)-1] // keep only the final EOF
		}
		tokens = append(tokens, toks...)
	}
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != TokEOF {
		tokens = append(tokens, Token{Kind: TokEOF})
	}

	prog, err := NewParser(tokens).ParseProgram()
	if err != nil {
		return nil, err
	}
	prog.BinsByFile = binsByFile
	return prog, nil
}

// CompileSource compiles a single in-memory source, used for snippets
// and tests.
func CompileSource(file string, src []byte, macros map[string]string) (*Program, error) {
	merged := BuiltinDefines()
	for k, v := range macros {
		merged[k] = v
	}
	return CompileSegments(
		[]SourceSegment{{File: file, StartLine: 1, Bytes: src}},
		merged,
		map[string]map[uint32][]byte{},
	)
}

// CompileProgram resolves spec against the working directory and the
// discovered vendored tree, preprocesses it, and parses the result. It
// returns the program and the merged macro table.
func CompileProgram(spec string) (*Program, map[string]string, error) {
	vendorRoot, _ := templefs.DiscoverVendorRoot()
	baseDir, err := os.Getwd()
	if err != nil {
		baseDir = "."
	}
	entry, err := templefs.ResolveSource(spec, baseDir, vendorRoot)
	if err != nil {
		return nil, nil, err
	}

	segments, defines, binsByFile, err := PreprocessEntry(entry, vendorRoot)
	if err != nil {
		return nil, nil, err
	}

	macros := BuiltinDefines()
	for k, v := range defines {
		macros[k] = v
	}
	prog, err := CompileSegments(segments, macros, binsByFile)
	if err != nil {
		return nil, nil, err
	}
	return prog, macros, nil
}
