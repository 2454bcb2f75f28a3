<complete file content>
=== END FILE ===
Paths are relative to the project root and use forward slashes.`

// ParseFiles extracts file blocks from a model response. A response with no
// blocks, an unterminated block, or a repeated path is an invalid shape.
func ParseFiles(text string) ([]fswriter.Entry, error) {
	var (
		entries []fswriter.Entry
		seen    = make(map[string]bool)
		current string
		inFile  bool
		body    strings.Builder
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 8<<20)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case !inFile && strings.HasPrefix(trimmed, fileStart) && strings.HasSuffix(trimmed, "==="):
			path := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, fileStart), "==="))
			if path == "" {
				return nil, fmt.Errorf("%w: file block without a path", ErrInvalidShape)
			}
			if seen[path] {
				return nil, fmt.Errorf("%w: file %q appears twice", ErrInvalidShape, path)
			}
			seen[path] = true
			current = path
			inFile = true
			body.Reset()
		case inFile && trimmed == fileEnd:
			entries = append(entries, fswriter.File(current, body.String()))
			inFile = false
		case inFile:
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	if inFile {
		return nil, fmt.Errorf("%w: file %q is not terminated", ErrInvalidShape, current)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no file blocks found", ErrInvalidShape)
	}
	return entries, nil
}

// FormatFiles renders entries in the layout ParseFiles reads. Test doubles
// use it to fabricate model responses.
func FormatFiles(files map[string]string, order ...string) string {
	var sb strings.Builder
	for _, path := range order {
		sb.WriteString(fileStart + path + " ===\n")
		content := files[path]
		sb.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteString(fileEnd + "\n")
	}
	return sb.String()
}
