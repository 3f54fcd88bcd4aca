package cmd

import (
	"strings"
	"testing"
)

func TestUploadCommand(t *testing.T) {
	testData := []struct {
		url string
		exp string
	}{
		{"s3://bucket", "aws s3 cp --recursive out/run1 s3://bucket/run1"},
		{"gs://bucket/dir", "gsutil -m cp -r out/run1 gs://bucket/dir/run1"},
		{"scp://host/tmp", "scp -r out/run1 scp://host/tmp/run1"},
		{"ftp://host", "error"},
	}
	for _, test := range testData {
		t.Run(test.url, func(t *testing.T) {
			args, err := uploadCommand(test.url, "out/run1")
			got := strings.Join(args, " ")
			if err != nil {
				got = "error"
			}
			if got != test.exp {
				t.Errorf("expected %q, got %q", test.exp, got)
			}
		})
	}
}
