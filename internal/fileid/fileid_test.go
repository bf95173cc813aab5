package fileid

import "testing"

func TestDocumentID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"hr-policy.txt", "hr-policy"},
		{"/srv/inbox/hr-policy.pdf", "hr-policy"},
		{`C:\Users\me\report.final.docx`, "report.final"},
		{"notes", "notes"},
		{".env", ".env"},
		{"  spaced.md  ", "spaced"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DocumentID(tt.name); got != tt.want {
			t.Errorf("DocumentID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDocumentID_Deterministic(t *testing.T) {
	if DocumentID("/a/b/c.txt") != DocumentID("/a/b/c.txt") {
		t.Error("same name should give same ID")
	}
	if DocumentID("/x/c.txt") != DocumentID("/y/c.pdf") {
		t.Error("same stem in different folders and formats should give same ID")
	}
}
