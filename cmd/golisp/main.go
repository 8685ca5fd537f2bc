// Command golisp is a thin REPL driver over the golisp package: it owns
// none of the language's semantics, only reading a line at a time from
// stdin, handing it to the interpreter, and printing the result or a
// diagnostic. Built in the teacher's own cmd/ style: a straight-line main,
// stdlib log for unrecoverable startup errors, stdlib fmt for the
// transcript itself.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"golisp"
)

func main() {
	noInitialize := false
	for _, tok := range os.Args[1:] {
		if tok == "no-initialize" {
			noInitialize = true
		}
	}

	cfg, err := golisp.LoadConfig("golisp.toml")
	if err != nil {
		log.Fatalf("golisp: loading config: %v", err)
	}
	if noInitialize {
		cfg.Repl.NoInitialize = true
	}

	in, err := golisp.NewInterpreter(cfg)
	if err != nil {
		log.Fatalf("golisp: initializing interpreter: %v", err)
	}

	if !cfg.Repl.NoInitialize {
		runBootstrap(in, cfg.Repl.BootstrapFile)
	}

	os.Exit(repl(in, cfg.Repl.Prompt))
}

// runBootstrap evaluates a form equivalent to
// (do (println "Loding core file...") (println (load "core.lisp")))
// The typo in "Loding" is specified verbatim and preserved here.
func runBootstrap(in *golisp.Interp, bootstrapFile string) {
	src := fmt.Sprintf(`(do (println "Loding core file...") (println (load %q)))`, bootstrapFile)
	form, err := in.Read(golisp.NewReader(src))
	if err != nil {
		log.Fatalf("golisp: internal bootstrap form failed to parse: %v", err)
	}
	if _, err := in.Eval(form); err != nil {
		fmt.Printf("Fatal error: %s\n", golisp.ErrorKind(err))
	}
}

// repl runs the read-eval-print loop described in §6 until input is
// exhausted, a parse failure occurs, or the evaluated form returns the
// exit symbol. It returns the process exit code.
func repl(in *golisp.Interp, prompt string) int {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var pending string
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			return 0
		}
		pending += scanner.Text() + "\n"

		form, err := in.Read(golisp.NewReader(pending))
		if err != nil {
			if err == io.EOF {
				// Nothing but whitespace/comments read so far (e.g. a
				// blank line); re-prompt instead of failing.
				pending = ""
				continue
			}
			if pe, ok := err.(golisp.ParseError); ok && pe.Incomplete {
				// Expression spans more lines; keep accumulating input.
				continue
			}
			fmt.Println("Parse failed.")
			return 0
		}
		pending = ""

		result, err := in.Eval(form)
		if err != nil {
			fmt.Printf("Fatal error: %s\n", golisp.ErrorKind(err))
			if _, ok := err.(golisp.HeapExhausted); ok {
				fmt.Println(in.Heap().DebugDump())
				return 1
			}
			continue
		}

		if sym, ok := result.(*golisp.Symbol); ok && sym == in.ExitSymbol() {
			return 0
		}
		fmt.Println(golisp.Display(result))
	}
}
