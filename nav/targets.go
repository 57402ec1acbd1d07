package nav

// TargetsAt computes navigation for entry i (0 based) of ordered urls.
func TargetsAt(urls []string, i int) Targets {
	if i < 0 || i >= len(urls) {
		return Targets{}
	}
	t := Targets{
		First: urls[0],
		Last:  urls[len(urls)-1],
	}
	if i > 0 {
		t.Prev = urls[i-1]
	}
	if i < len(urls)-1 {
		t.Next = urls[i+1]
	}
	return t
}
