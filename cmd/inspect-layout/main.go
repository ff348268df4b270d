// Diagnostic program for the cached report layout.
// It prints the page index, the tables found on the requested printed
// pages and the statements of the last analysis with their tables.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/coinsight/internal/store"
	"github.com/ppiankov/coinsight/internal/tables"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect-layout <data-dir> [printed-page ...]")
		os.Exit(2)
	}
	st := store.New(os.Args[1])

	doc, err := st.LoadParsedDocument()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load layout: %v\n", err)
		os.Exit(1)
	}
	ix := tables.BuildPageIndex(doc)

	fmt.Println("=== Page Index ===")
	fmt.Printf("%d pages, %d tables\n\n", ix.Len(), len(doc.Tables))
	for i := 0; i < ix.Len(); i++ {
		e, _ := ix.Entry(i)
		if len(e.Tables) == 0 {
			continue
		}
		fmt.Printf("  index %4d  page %4d  tables %v\n", i, e.PageNumber, e.Tables)
	}

	for _, arg := range os.Args[2:] {
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %q: not a page number\n", arg)
			continue
		}
		fmt.Printf("\n=== Printed page %d ===\n", n)
		i, err := ix.IndexForPageNumber(n)
		if err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}
		found, _ := ix.Resolve(i, i)
		fmt.Printf("  index %d, tables %v\n\n", i, found)
		fmt.Println(tables.RenderTables(doc, found))
	}

	report, err := st.LoadAnalysis()
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load analysis: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== Located Statements ===")
	for _, e := range report.Entries {
		found, err := ix.ResolveEntry(e)
		status := fmt.Sprintf("tables %v", found)
		if err != nil {
			status = "⚠️  " + err.Error()
		}
		fmt.Printf("  %-45s pages %d-%d  %s\n", truncate(e.Name, 45), e.StartPage, e.EndPage, status)
	}
	for _, g := range report.Categories {
		fmt.Printf("\n  %s: %s\n", g.Category, strings.Trim(fmt.Sprint(g.Tables), "[]"))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
