package parser

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/nbyapp/nbyapp/internal/app"
)

// fenceRe matches a language-tagged fenced block. A closing fence must start a
// line, so backticks inside the code do not end the block. The closing fence
// is optional so that a completion cut off by the token limit still yields
// its last file.
var fenceRe = regexp.MustCompile("(?ms)```([A-Za-z0-9_+.-]+)[^\\n]*\\n(.*?)(?:\\n?^```[ \\t]*$|\\z)")

type target struct {
	fileType app.FileType
	name     string
}

var languages = map[string]target{
	"html":       {app.FileTypeHTML, "index.html"},
	"css":        {app.FileTypeCSS, "styles.css"},
	"javascript": {app.FileTypeJavaScript, "app.js"},
	"js":         {app.FileTypeJavaScript, "app.js"},
}

// ExtractFiles turns a raw model completion into app files.
//
// Blocks are taken in order of appearance. Unknown language tags are skipped.
// A second block mapping to an already used name is renamed index1.html,
// index2.html and so on. When nothing is recognized the placeholder set is
// returned, so the result is never empty.
func ExtractFiles(raw string) []app.File {
	var files []app.File
	used := make(map[string]bool)
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		t, ok := languages[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		name := uniqueName(t.name, used)
		used[name] = true
		files = append(files, app.File{Name: name, Content: m[2], Type: t.fileType})
	}

	if len(files) == 0 {
		return Placeholder()
	}
	return files
}

func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d%s", base, i, ext)
		if !used[candidate] {
			return candidate
		}
	}
}

// Placeholder returns the minimal app used when a completion has no usable code
func Placeholder() []app.File {
	return []app.File{
		{Name: "index.html", Type: app.FileTypeHTML, Content: placeholderHTML},
		{Name: "styles.css", Type: app.FileTypeCSS, Content: placeholderCSS},
		{Name: "app.js", Type: app.FileTypeJavaScript, Content: placeholderJS},
	}
}

const placeholderHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Generated App</title>
    <link rel="stylesheet" href="styles.css">
</head>
<body>
    <main>
        <h1>Generated App</h1>
        <p>The model response did not contain any code.</p>
    </main>
    <script src="app.js"></script>
</body>
</html>`

const placeholderCSS = `body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    margin: 0;
    padding: 2rem;
    color: #333;
}`

const placeholderJS = `document.addEventListener('DOMContentLoaded', function() {
    console.log('App loaded');
});`
