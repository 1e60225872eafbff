// Command build-dictionary compiles a mecab-ko-dic-format source directory
// into a single binary dictionary artifact.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/nori-go/nori/dictionary/builder"
	"github.com/nori-go/nori/unicodeutil"
)

func main() {
	mecabDir := flag.String("mecab-dir", "", "directory containing the CSV and .def source files (required)")
	output := flag.String("output", "dictionary.nori", "path to write the compiled binary artifact")
	normalize := flag.Bool("normalize", true, "apply Unicode normalization to surfaces before indexing")
	normalizationForm := flag.String("normalization-form", "NFKC", "normalization form to apply (NONE, NFKC)")
	flag.Parse()

	if *mecabDir == "" {
		log.Fatal("build-dictionary: -mecab-dir is required")
	}

	form, ok := unicodeutil.ParseForm(*normalizationForm)
	if !ok {
		log.Fatalf("build-dictionary: unknown normalization form %q", *normalizationForm)
	}
	if !*normalize {
		form = unicodeutil.NoneForm
	}

	b := builder.New(*mecabDir, form)
	fmt.Printf("build-dictionary: compiling %s (normalization=%s)\n", *mecabDir, form)
	if err := b.Save(*output); err != nil {
		log.Fatalf("build-dictionary: %v", err)
	}
	fmt.Printf("build-dictionary: wrote %s\n", *output)
}
