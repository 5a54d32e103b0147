package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"wires/internal/app"
	"wires/internal/messaging/deserializer"
	"wires/internal/messaging/envelope"
	"wires/internal/messaging/typeregistry"
	"wires/internal/platform/config"
)

const (
	flagRegistry     = "registry"
	flagUsername     = "username"
	flagPassword     = "password"
	flagAllowUnknown = "allow-unknown"
	flagTopic        = "topic"
	flagStrict       = "strict"
)

func newDecodeCommand() *cobra.Command {
	cfg := config.FromEnv().SchemaRegistry

	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Deserialize a structured CloudEvent file and print the resulting object",
		Long: `Reads a CloudEvent in structured JSON form (use - for stdin), decodes its
Confluent-framed Avro payload against the schema registry and prints the
constructed object as YAML. Dropped fields are reported after the object.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, cfg, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.URL, flagRegistry, cfg.URL, "schema registry base URL")
	flags.StringVar(&cfg.Username, flagUsername, cfg.Username, "schema registry basic auth user")
	flags.StringVar(&cfg.Password, flagPassword, cfg.Password, "schema registry basic auth password")
	flags.Bool(flagAllowUnknown, false, "keep nested records of unregistered types as maps")
	flags.String(flagTopic, "", "topic recorded on the message, for logs only")
	flags.Bool(flagStrict, false, "fail when any field was dropped")
	return cmd
}

func runDecode(cmd *cobra.Command, cfg config.SchemaRegistryConfig, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var typeOpts []typeregistry.Option
	if allow, _ := flags.GetBool(flagAllowUnknown); allow {
		typeOpts = append(typeOpts, typeregistry.WithAllowUnknown())
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelError}))

	stack, err := app.NewMessaging(cfg, nil, log, typeOpts...)
	if err != nil {
		return fmt.Errorf("set up deserializer: %w", err)
	}

	topic, _ := flags.GetString(flagTopic)
	msg := envelope.Message{
		Topic:   topic,
		Value:   data,
		Headers: []envelope.Header{{Key: "content-type", Value: []byte(envelope.ContentTypeStructured)}},
	}
	res, err := stack.Deserializer.Deserialize(cmd.Context(), msg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res == nil {
		color.New(color.FgYellow).Fprintln(out, "event carries no payload, nothing to decode")
		return nil
	}
	if err := printResult(out, res); err != nil {
		return err
	}

	if strict, _ := flags.GetBool(flagStrict); strict && !res.Complete() {
		return fmt.Errorf("%d field(s) dropped", len(res.Diagnostics))
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return data, nil
}

func printResult(w io.Writer, res *deserializer.Result) error {
	heading := color.New(color.Bold)
	heading.Fprintf(w, "# type: %s\n", res.TypeName)
	heading.Fprintf(w, "# id: %s\n", res.EventID)
	if res.Subject != "" {
		heading.Fprintf(w, "# subject: %s\n", res.Subject)
	}

	body, err := yaml.Marshal(res.Value)
	if err != nil {
		return fmt.Errorf("render %s: %w", res.TypeName, err)
	}
	if _, err := w.Write(body); err != nil {
		return err
	}

	if res.Complete() {
		color.New(color.FgGreen).Fprintln(w, "# all fields assigned")
		return nil
	}
	warn := color.New(color.FgYellow)
	for _, d := range res.Diagnostics {
		warn.Fprintf(w, "# dropped %s\n", d)
	}
	return nil
}
