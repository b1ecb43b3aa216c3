// Command advice-scan reads a payment advice image with Tesseract and prints
// the fields found by pattern matching.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/octobees/payadvice/internal/entity"
	"github.com/octobees/payadvice/internal/extract"
	"github.com/octobees/payadvice/internal/ocr"
)

func main() {
	display := flag.Bool("display", false, "write a copy of the image with word boxes (confidence > 60)")
	out := flag.String("out", "", "path of the boxed image (default <image>_boxes.png)")
	lang := flag.String("lang", "eng", "tesseract language")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [image]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	path := "bank.png"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		log.Fatalf("failed to load image %s: %v", path, err)
	}

	ctx := context.Background()
	engine := ocr.NewTesseractEngine(*lang)
	prepared := ocr.Preprocess(img)

	text, err := engine.Recognize(ctx, prepared)
	if err != nil {
		log.Fatalf("ocr failed: %v", err)
	}
	fmt.Println("Extracted text:")
	fmt.Println(text)

	fmt.Println()
	printFields(os.Stdout, extract.ParseBankText(text))

	if !*display {
		return
	}
	words, err := engine.Words(ctx, prepared)
	if err != nil {
		log.Fatalf("word boxes failed: %v", err)
	}
	target := boxesPath(path, *out)
	if err := imaging.Save(ocr.DrawBoxes(img, words, ocr.BoxConfidence), target); err != nil {
		log.Fatalf("failed to save %s: %v", target, err)
	}
	fmt.Printf("\nBoxed image written to %s\n", target)
}

func printFields(w io.Writer, info entity.PageInfo) {
	fmt.Fprintln(w, "Parsed information:")
	for _, field := range []struct{ name, value string }{
		{"Date", info.Date},
		{"Amount", info.Amount},
		{"Payee", info.Payee},
		{"Reference", info.Reference},
		{"Invoice", info.Invoice},
	} {
		value := field.value
		if value == "" {
			value = "Not found"
		}
		fmt.Fprintf(w, "%s: %s\n", field.name, value)
	}
}

// boxesPath is --out when given, otherwise the image path with a _boxes.png
// suffix.
func boxesPath(path, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_boxes.png"
}
