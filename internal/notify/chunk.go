package notify

// chunk is one outgoing message: its text plus the indexes of the listing
// items it carries.
type chunk struct {
	text  string
	items []int
}

// chunkItems packs formatted listing texts into messages of at most maxLen
// characters. Boundaries always fall between listings; a listing is never
// split. The first message starts with header, later ones with cont. An
// item that alone exceeds the budget is sent as its own oversized message
// rather than truncated.
func chunkItems(header, cont string, items []string, maxLen int) []chunk {
	var out []chunk
	cur := chunk{text: header}

	for i, item := range items {
		if len(cur.items) > 0 && len(cur.text)+len(item) > maxLen {
			out = append(out, cur)
			cur = chunk{text: cont}
		}
		cur.text += item
		cur.items = append(cur.items, i)
	}
	if len(cur.items) > 0 {
		out = append(out, cur)
	}
	return out
}
