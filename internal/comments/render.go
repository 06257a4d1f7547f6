package comments

import (
	"embed"
	"html/template"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"studybuddy/internal/identity"
	"studybuddy/internal/markup"
)

// MaxIndentDepth caps visual indentation. Deeper replies are still rendered,
// they just stop moving right.
const MaxIndentDepth = 4

//go:embed templates/*.html
var templateFS embed.FS

var threadTemplate = template.Must(template.New("thread.html").ParseFS(templateFS, "templates/thread.html"))

// RenderOptions is the explicit context a render needs
type RenderOptions struct {
	Viewer identity.Identity
	Now    time.Time
	// ReplyTo is the comment whose reply form is open, 0 for none
	ReplyTo int64
	// Draft and Error belong to the open reply form after a failed submission
	Draft string
	Error string
}

// ThreadItem is one rendered comment in display order
type ThreadItem struct {
	Comment
	Depth     int
	Indent    int
	TimeAgo   string
	Initial   string
	Body      template.HTML
	CanReply  bool
	CanDelete bool
	ReplyOpen bool
	Draft     string
	Error     string
}

// IndentLevel returns the indentation used for depth
func IndentLevel(depth int) int {
	if depth > MaxIndentDepth {
		return MaxIndentDepth
	}
	if depth < 0 {
		return 0
	}
	return depth
}

// Flatten walks the forest depth first and returns one item per reachable node
func Flatten(roots []*CommentNode, opts RenderOptions) []ThreadItem {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	items := make([]ThreadItem, 0, len(roots))
	for _, n := range roots {
		items = appendNode(items, n, 0, opts)
	}
	return items
}

func appendNode(items []ThreadItem, n *CommentNode, depth int, opts RenderOptions) []ThreadItem {
	signedIn := opts.Viewer.Authenticated()
	item := ThreadItem{
		Comment:   n.Comment,
		Depth:     depth,
		Indent:    IndentLevel(depth),
		TimeAgo:   FormatTimeAgo(opts.Now, n.CreatedAt),
		Initial:   initial(n.Author),
		Body:      markup.Render(n.Content),
		CanReply:  signedIn,
		CanDelete: signedIn && opts.Viewer.UserID == n.UserID,
	}
	if signedIn && opts.ReplyTo == n.ID {
		item.ReplyOpen = true
		item.Draft = opts.Draft
		item.Error = opts.Error
	}

	items = append(items, item)
	for _, r := range n.Replies {
		items = appendNode(items, r, depth+1, opts)
	}
	return items
}

func initial(author string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(author))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// ThreadPage is everything the HTML thread view shows
type ThreadPage struct {
	PostID int64
	// BasePath is the thread URL as the browser sees it
	BasePath  string
	Count     int
	Items     []ThreadItem
	Viewer    identity.Identity
	LoadError string
	// TopDraft and TopError belong to the top-level comment form
	TopDraft string
	TopError string
}

// NewThreadPage renders thread for the viewer in opts. A nil thread is a failed load.
func NewThreadPage(basePath string, postID int64, thread *Thread, loadErr error, opts RenderOptions) ThreadPage {
	page := ThreadPage{
		PostID:   postID,
		BasePath: basePath,
		Viewer:   opts.Viewer,
	}
	if loadErr != nil || thread == nil {
		if loadErr != nil {
			page.LoadError = loadErr.Error()
		}
		return page
	}

	page.Count = thread.Count
	page.Items = Flatten(thread.Comments, opts)
	// a reply to a comment that is gone keeps its draft in the top-level form
	if !replyFormOpen(page.Items) {
		page.TopDraft = opts.Draft
		page.TopError = opts.Error
	}
	return page
}

func replyFormOpen(items []ThreadItem) bool {
	for _, it := range items {
		if it.ReplyOpen {
			return true
		}
	}
	return false
}

// RenderThreadHTML writes the thread view
func RenderThreadHTML(w io.Writer, page ThreadPage) error {
	return threadTemplate.Execute(w, page)
}
