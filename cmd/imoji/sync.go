package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/imoji"
	"github.com/dmitrymomot/imoji/pkg/qrcode"
)

// failureLog captures SynchronizationFailed for the sync command.
type failureLog struct {
	err error
}

func (f *failureLog) SessionStateChanged(*imoji.Session, imoji.SessionState, imoji.SessionState) {}

func (f *failureLog) SynchronizationFailed(_ *imoji.Session, err error) {
	f.err = err
}

func syncCommand(app *cli) *cobra.Command {
	var (
		source  string
		qrOut   string
		noQR    bool
		inverse bool
		forget  bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Link the signed-in imoji app user to this client",
		Long: "Prints an authorization URL and its QR code. Approve it in the imoji app,\n" +
			"then paste the callback URL the app opens (<scheme>://imoji/sync?...).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			failures := &failureLog{}
			sess, err := app.session(imoji.WithDelegate(failures))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if forget {
				var cleared error
				op := sess.ClearUserSynchronization(func(_ bool, err error) { cleared = err })
				if err := await(cmd.Context(), op); err != nil {
					return err
				}
				if cleared != nil {
					return cleared
				}
				fmt.Fprintln(out, "synchronization cleared")
				return nil
			}

			authURL, err := sess.SynchronizationURL()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, authURL)
			switch {
			case qrOut != "":
				png, err := qrcode.PNG(authURL, qrcode.DefaultSize)
				if err != nil {
					return err
				}
				if err := writeFile(qrOut, png); err != nil {
					return err
				}
			case !noQR:
				art, err := qrcode.Terminal(authURL, inverse)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, art)
			}

			fmt.Fprint(out, "callback url: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(line) == "" {
				return fmt.Errorf("read callback url: %w", err)
			}
			cb, err := url.Parse(strings.TrimSpace(line))
			if err != nil {
				return err
			}
			if source == "" {
				source = app.cfg.CompanionAppID
			}
			if !sess.HandleImojiAppRequest(cmd.Context(), cb, source) {
				return errors.New("not an imoji app callback for this client")
			}
			if failures.err != nil {
				return failures.err
			}
			fmt.Fprintf(out, "session is %s\n", sess.State())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&source, "source", "", "identifier of the app that opened the callback (default: companion app id)")
	f.StringVar(&qrOut, "qr", "", "write the QR code as PNG to this file instead of the terminal")
	f.BoolVar(&noQR, "no-qr", false, "do not print a QR code")
	f.BoolVar(&inverse, "inverse", false, "invert terminal QR colors")
	f.BoolVar(&forget, "clear", false, "revoke and forget the synchronized user")
	return cmd
}

func collectionCommand(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "List the synchronized user's stickers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := app.session()
			if err != nil {
				return err
			}
			out := newListing(cmd.OutOrStdout())
			if err := await(cmd.Context(), sess.UserImojis(out.resultSet, out.item)); err != nil {
				return err
			}
			return out.flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <id>",
		Short: "Add a sticker to the synchronized user's collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.session()
			if err != nil {
				return err
			}
			var (
				im      *imoji.Imoji
				lookErr error
			)
			op := sess.FetchByIdentifiers(args, func(found *imoji.Imoji, _ int, err error) {
				if found == nil {
					lookErr = err
					return
				}
				im = found
			})
			if err := await(cmd.Context(), op); err != nil {
				return err
			}
			if lookErr != nil {
				return lookErr
			}
			if im == nil {
				return fmt.Errorf("sticker %q not found", args[0])
			}

			var added error
			op = sess.AddToUserCollection(im, func(_ bool, err error) { added = err })
			if err := await(cmd.Context(), op); err != nil {
				return err
			}
			if added != nil {
				return added
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", im.ID())
			return nil
		},
	})
	return cmd
}
