package interactions

import (
	"fmt"
	"os/exec"
	"strings"
)

// Sharer hands an article link off to the platform. The default is the
// system clipboard; a GUI embedding can inject a native share sheet.
type Sharer interface {
	Share(url, title string) error
}

// clipboardTools are tried in order; the first one present wins.
var clipboardTools = [][]string{
	{"pbcopy"},
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
}

// Clipboard copies the article URL to the system clipboard.
type Clipboard struct{}

func (Clipboard) Share(url, _ string) error {
	for _, tool := range clipboardTools {
		if _, err := exec.LookPath(tool[0]); err != nil {
			continue
		}
		cmd := exec.Command(tool[0], tool[1:]...)
		cmd.Stdin = strings.NewReader(url)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s: %w", tool[0], err)
		}
		return nil
	}
	return fmt.Errorf("no clipboard tool available")
}
