package codegen

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/repoforge/repoforge/internal/fswriter"
)

const (
	fileStart = "=== FILE: "
	fileEnd   = "=== END FILE ==="
)

// FileFormatInstructions tells the model how to lay out its answer so that
// ParseFiles can recover the files.
const FileFormatInstructions = `Return every file using exactly this layout and nothing else: