// Command nori-tokenize loads a compiled dictionary artifact and prints the
// lattice segmentation of a sentence, one token per line.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/nori-go/nori/dictionary"
	"github.com/nori-go/nori/tokenizer"
)

func main() {
	dictPath := flag.String("dict", "", "path to the compiled dictionary artifact (default: "+dictionary.DictPathEnv+" or dictionary.nori)")
	userDictPath := flag.String("user-dict", "", "optional path to a user dictionary file")
	flag.Parse()

	dict, err := dictionary.LoadDictionary(*dictPath)
	if err != nil {
		log.Fatalf("nori-tokenize: %v", err)
	}
	if *userDictPath != "" {
		if err := dict.LoadUserDictionary(*userDictPath); err != nil {
			log.Printf("nori-tokenize: user dictionary: %v (continuing without it)", err)
		}
	}

	tok := tokenizer.New(dict)

	sentence := strings.Join(flag.Args(), " ")
	if sentence == "" {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("nori-tokenize: read stdin: %v", err)
		}
		sentence = strings.TrimSpace(string(input))
	}

	tokens, err := tok.Tokenize(sentence)
	if err != nil {
		log.Fatalf("nori-tokenize: %v", err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, t := range tokens {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", t.Surface, t.POSTag, t.LeftID, t.RightID, t.WordCost)
	}
}
