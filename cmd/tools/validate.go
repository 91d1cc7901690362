package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/internal"
)

var errRecordInvalid = errors.New("record failed validation")

type validateOutput struct {
	Valid  bool                      `json:"valid"`
	Data   attrschema.AttributesData `json:"data,omitempty"`
	Errors attrschema.FieldErrors    `json:"errors,omitempty"`
}

func runValidate(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: attrschema-tools validate [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}

	var source setSource
	source.register(flags)
	recordPath := flags.StringP("record", "r", "-", "Path to the attributes record JSON (- reads stdin)")
	mode := flags.String("mode", "create", "Session mode: create applies defaults, edit accepts name keyed values")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	var sessionMode internal.SessionMode
	switch *mode {
	case internal.SessionModeCreate.String():
		sessionMode = internal.SessionModeCreate
	case internal.SessionModeEdit.String():
		sessionMode = internal.SessionModeEdit
	default:
		return fmt.Errorf("unknown mode %q (want create or edit)", *mode)
	}

	store, setID, err := source.store()
	if err != nil {
		return err
	}
	record, err := readRecord(*recordPath, os.Stdin)
	if err != nil {
		return err
	}

	session := internal.NewSession(store, sessionMode, record)
	if _, err := session.Select(context.Background(), setID); err != nil {
		return err
	}
	result, err := session.Validate()
	if err != nil {
		return err
	}

	if err := writeIndented(out, validateOutput{Valid: result.Valid(), Data: result.Data, Errors: result.Errors}); err != nil {
		return err
	}
	if !result.Valid() {
		return errRecordInvalid
	}
	return nil
}
