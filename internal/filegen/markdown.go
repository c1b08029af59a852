package filegen

import (
	"fmt"
	"time"

	"github.com/xxxsen/ragcore/internal/model"
)

// renderMarkdown implements §4.9 step 5's markdown branch: a YAML-ish
// front-matter block ahead of the model's own Markdown body.
func renderMarkdown(file *model.GeneratedFile, version int, body string) []byte {
	frontMatter := fmt.Sprintf(
		"---\ntitle: %s\ntype: %s\nproject: %s\ngenerated: %s\nversion: %d\n---\n\n",
		file.DisplayName, file.FileType, file.ProjectID, time.Now().UTC().Format(time.RFC3339), version,
	)
	return []byte(frontMatter + body)
}
