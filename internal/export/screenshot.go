package export

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ansiRegex = regexp.MustCompile(`\x1b\[([0-9;]*)m`)

// basePalette holds the 16 standard terminal colors
var basePalette = [16]string{
	"#000000", "#800000", "#008000", "#808000", "#000080", "#800080", "#008080", "#c0c0c0",
	"#808080", "#ff0000", "#00ff00", "#ffff00", "#0000ff", "#ff00ff", "#00ffff", "#ffffff",
}

// xtermColor returns the hex value of a 256-color palette index
func xtermColor(n int) (string, bool) {
	switch {
	case n < 0 || n > 255:
		return "", false
	case n < 16:
		return basePalette[n], true
	case n < 232:
		n -= 16
		levels := [6]int{0, 95, 135, 175, 215, 255}
		return fmt.Sprintf("#%02x%02x%02x", levels[n/36], levels[(n/6)%6], levels[n%6]), true
	default:
		g := 8 + (n-232)*10
		return fmt.Sprintf("#%02x%02x%02x", g, g, g), true
	}
}

// GenerateFilename generates a filename with timestamp
func GenerateFilename(prefix, extension, directory string) string {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", prefix, timestamp, extension)
	if directory != "" {
		return filepath.Join(directory, filename)
	}
	return filename
}

// StripANSI removes SGR escape sequences
func StripANSI(content string) string {
	return ansiRegex.ReplaceAllString(content, "")
}

// SaveAsText saves content as plain text, stripping ANSI codes
func SaveAsText(content string, filename string) error {
	if filename == "" {
		filename = GenerateFilename("beaconmap_screenshot", "txt", "")
	}
	return writeFile(filename, StripANSI(content))
}

// SaveAsHTML saves content as styled HTML with ANSI colors converted
func SaveAsHTML(content string, filename string) error {
	if filename == "" {
		filename = GenerateFilename("beaconmap_screenshot", "html", "")
	}
	return writeFile(filename, convertANSIToHTML(content))
}

// CaptureScreen saves the current view as HTML in directory
func CaptureScreen(content string, directory string) (string, error) {
	filename := GenerateFilename("beaconmap_screenshot", "html", directory)
	if err := SaveAsHTML(content, filename); err != nil {
		return "", err
	}
	return filename, nil
}

func writeFile(filename, content string) error {
	if dir := filepath.Dir(filename); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

const htmlHeader = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Beacon Map Screenshot</title>
    <style>
        body {
            background-color: #0a0a0a;
            color: #c0c0c0;
            font-family: 'Cascadia Code', 'Fira Code', 'Consolas', 'Monaco', 'Liberation Mono', monospace;
            font-size: 14px;
            line-height: 1.2;
            padding: 20px;
            margin: 0;
        }
        pre { margin: 0; white-space: pre; overflow-x: auto; }
        .bold { font-weight: bold; }
        .dim { opacity: 0.7; }
        .italic { font-style: italic; }
        .underline { text-decoration: underline; }
        .reverse { filter: invert(1); }
        .timestamp { color: #666; font-size: 12px; margin-bottom: 10px; }
    </style>
</head>
<body>
    <div class="timestamp">Captured: `

// convertANSIToHTML converts ANSI terminal output to styled HTML
func convertANSIToHTML(content string) string {
	var sb strings.Builder
	sb.WriteString(htmlHeader)
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString("</div>\n    <pre>")
	sb.WriteString(parseANSI(content))
	sb.WriteString("</pre>\n</body>\n</html>")
	return sb.String()
}

// sgrState is the text style selected by SGR codes
type sgrState struct {
	fg, bg                                string
	bold, dim, italic, underline, reverse bool
}

func (s sgrState) plain() bool {
	return s == sgrState{}
}

// apply updates the state from the codes of one escape sequence
func (s *sgrState) apply(codes []string) {
	for i := 0; i < len(codes); i++ {
		n, err := strconv.Atoi(codes[i])
		if codes[i] == "" {
			n, err = 0, nil
		}
		if err != nil {
			continue
		}
		switch {
		case n == 0:
			*s = sgrState{}
		case n == 1:
			s.bold = true
		case n == 2:
			s.dim = true
		case n == 3:
			s.italic = true
		case n == 4:
			s.underline = true
		case n == 7:
			s.reverse = true
		case n == 22:
			s.bold, s.dim = false, false
		case n == 23:
			s.italic = false
		case n == 24:
			s.underline = false
		case n == 27:
			s.reverse = false
		case n >= 30 && n <= 37:
			s.fg = basePalette[n-30]
		case n >= 90 && n <= 97:
			s.fg = basePalette[n-90+8]
		case n >= 40 && n <= 47:
			s.bg = basePalette[n-40]
		case n >= 100 && n <= 107:
			s.bg = basePalette[n-100+8]
		case n == 39:
			s.fg = ""
		case n == 49:
			s.bg = ""
		case n == 38 || n == 48:
			color, used := extendedColor(codes[i+1:])
			i += used
			if color == "" {
				continue
			}
			if n == 38 {
				s.fg = color
			} else {
				s.bg = color
			}
		}
	}
}

// extendedColor parses "5;n" or "2;r;g;b" and reports how many codes it used
func extendedColor(codes []string) (string, int) {
	if len(codes) >= 2 && codes[0] == "5" {
		n, _ := strconv.Atoi(codes[1])
		c, _ := xtermColor(n)
		return c, 2
	}
	if len(codes) >= 4 && codes[0] == "2" {
		r, _ := strconv.Atoi(codes[1])
		g, _ := strconv.Atoi(codes[2])
		b, _ := strconv.Atoi(codes[3])
		return fmt.Sprintf("#%02x%02x%02x", r&0xff, g&0xff, b&0xff), 4
	}
	return "", 0
}

// parseANSI converts ANSI escape sequences to HTML spans. Text between
// sequences is escaped as a whole, so multi-byte runes survive.
func parseANSI(content string) string {
	var result strings.Builder
	var state sgrState

	writeText := func(text string) {
		if text == "" {
			return
		}
		escaped := html.EscapeString(text)
		if state.plain() {
			result.WriteString(escaped)
			return
		}
		result.WriteString(buildSpan(escaped, state))
	}

	last := 0
	for _, loc := range ansiRegex.FindAllStringSubmatchIndex(content, -1) {
		writeText(content[last:loc[0]])
		state.apply(strings.Split(content[loc[2]:loc[3]], ";"))
		last = loc[1]
	}
	writeText(content[last:])

	return result.String()
}

// buildSpan wraps text in a span carrying the state's styles
func buildSpan(text string, s sgrState) string {
	var styles, classes []string
	if s.fg != "" {
		styles = append(styles, "color:"+s.fg)
	}
	if s.bg != "" {
		styles = append(styles, "background-color:"+s.bg)
	}
	for _, c := range []struct {
		on   bool
		name string
	}{
		{s.bold, "bold"}, {s.dim, "dim"}, {s.italic, "italic"}, {s.underline, "underline"}, {s.reverse, "reverse"},
	} {
		if c.on {
			classes = append(classes, c.name)
		}
	}

	var sb strings.Builder
	sb.WriteString("<span")
	if len(classes) > 0 {
		sb.WriteString(` class="` + strings.Join(classes, " ") + `"`)
	}
	if len(styles) > 0 {
		sb.WriteString(` style="` + strings.Join(styles, ";") + `"`)
	}
	sb.WriteString(">")
	sb.WriteString(text)
	sb.WriteString("</span>")
	return sb.String()
}
