package promise

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Shell drives a Harness from line-oriented input.
type Shell struct {
	harness *Harness
	scanner *bufio.Scanner
	out     io.Writer
	tracer  trace.Tracer
}

func NewShell(harness *Harness, in io.Reader, out io.Writer, tracer trace.Tracer) *Shell {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("shell")
	}
	return &Shell{
		harness: harness,
		scanner: bufio.NewScanner(in),
		out:     out,
		tracer:  tracer,
	}
}

// Run processes commands until exit, end of input or ctx is done. Input is
// read on its own goroutine so a blocked read does not hold Run past ctx.
func (s *Shell) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for s.scanner.Scan() {
			select {
			case lines <- s.scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return
		}

		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))
		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "status":
		s.handleStatus()
	case "widget":
		s.handleWidget()
	case "params":
		s.handleParams()
	case "set_retailer":
		s.handleSet(parts, "set_retailer <retailer>", s.harness.Panel.SetRetailer)
	case "set_postal_code":
		s.handleSet(parts, "set_postal_code <postal_code>", s.harness.Panel.SetPostalCode)
	case "set_sku":
		s.handleSet(parts, "set_sku <sku>", s.harness.Panel.SetSKU)
	case "query":
		s.println(s.harness.Panel.Snapshot().Query)
	case "url":
		s.println(s.harness.Panel.Snapshot().URL)
	case "fetch":
		s.handleFetch(ctx)
	case "options":
		s.handleOptions()
	case "response":
		s.handleResponse()
	case "help":
		s.println("Commands: status, widget, params, set_retailer, set_postal_code, set_sku, query, url, fetch, options, response, exit")
	default:
		s.printf("Unknown command: %s\n", parts[0])
	}
}

func (s *Shell) handleStatus() {
	w := s.harness.Widget()
	p := s.harness.Panel.Snapshot()
	s.printf("Widget: %s\n", w.Poller.Status)
	if p.StatusText == "" {
		s.println("API: idle")
		return
	}
	s.printf("API: %s\n", p.StatusText)
}

func (s *Shell) handleWidget() {
	w := s.harness.Widget()
	s.printf("Script loaded: %s\n", yesNo(w.Debug.ScriptLoaded))
	s.printf("%s available: %s\n", s.harness.Poller.Config().GlobalName, yesNo(w.Debug.EntrypointAvailable))
	s.printf("Widget mounted: %s\n", yesNo(w.Anchor.Mounted))
}

func (s *Shell) handleParams() {
	s.println(s.harness.Widget().Debug.ParamsJSON())
}

func (s *Shell) handleSet(parts []string, usage string, set func(string)) {
	if len(parts) != 2 {
		s.println("Usage: " + usage)
		return
	}
	set(parts[1])
	s.printf("Updated: %s\n", parts[1])
}

func (s *Shell) handleFetch(ctx context.Context) {
	s.println(RequestStatus{Kind: StatusLoading}.String())
	status, _ := s.harness.Panel.Fetch(ctx)
	s.println(status.String())

	snap := s.harness.Panel.Snapshot()
	if snap.Error != "" {
		s.printf("Error: %s\n", snap.Error)
		return
	}
	s.printOptions(snap.DeliveryOptions)
}

func (s *Shell) handleOptions() {
	s.printOptions(s.harness.Panel.Snapshot().DeliveryOptions)
}

func (s *Shell) printOptions(options []DeliveryOption) {
	if len(options) == 0 {
		s.println("No delivery options")
		return
	}
	s.println("Promise ID\tOption\tText")
	for _, o := range options {
		s.printf("%s\t%s\t%s\n", o.PromiseID, o.Name, o.Text)
	}
}

func (s *Shell) handleResponse() {
	snap := s.harness.Panel.Snapshot()
	if len(snap.Response) == 0 {
		s.println("No response")
		return
	}
	r := &Response{StatusCode: snap.ResponseCode, Body: snap.Response}
	s.println(r.Pretty())
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
