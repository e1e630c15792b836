package cmd

import (
	"fmt"
	"io"

	"github.com/greenpoints/greenledger/jsonx"
)

func printJSON(w io.Writer, v interface{}) error {
	raw, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
