package agent

type UIBlockKind string

const (
	UIBlockTable UIBlockKind = "table"
	UIBlockKV    UIBlockKind = "kv"
)

// UIBlock is structured output a terminal renders without parsing tool text.
type UIBlock struct {
	Kind  UIBlockKind `json:"kind"`
	Table *UITable    `json:"table,omitempty"`
	KV    *UIKV       `json:"kv,omitempty"`
}

type UITable struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type UIKV struct {
	Title string   `json:"title,omitempty"`
	Items []KVItem `json:"items"`
}

type KVItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func TableBlock(title string, headers []string, rows [][]string) UIBlock {
	return UIBlock{Kind: UIBlockTable, Table: &UITable{Title: title, Headers: headers, Rows: rows}}
}

// KVBlock drops items with an empty value.
func KVBlock(title string, items ...KVItem) UIBlock {
	kept := make([]KVItem, 0, len(items))
	for _, it := range items {
		if it.Value != "" {
			kept = append(kept, it)
		}
	}
	return UIBlock{Kind: UIBlockKV, KV: &UIKV{Title: title, Items: kept}}
}
