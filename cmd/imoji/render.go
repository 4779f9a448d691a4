package main

import (
	"errors"
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/imoji"
	"github.com/dmitrymomot/imoji/pkg/render"
)

func renderCommand(app *cli) *cobra.Command {
	var (
		size   string
		border bool
		shadow bool
		width  int
		height int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Render a sticker to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := imoji.ParseRenderSize(size)
			if err != nil {
				return err
			}
			opts := imoji.RenderingOptions{
				Size:       rs,
				TargetSize: image.Pt(width, height),
			}
			if border {
				opts.Border = imoji.BorderSticker
			}
			if shadow {
				opts.Shadow = imoji.ShadowDrop
			}

			sess, err := app.session()
			if err != nil {
				return err
			}

			var (
				im      *imoji.Imoji
				lookErr error
			)
			op := sess.FetchByIdentifiers(args, func(found *imoji.Imoji, _ int, err error) {
				if im == nil && found != nil {
					im = found
				}
				if found == nil {
					lookErr = err
				}
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

			var (
				img       image.Image
				renderErr error
			)
			op = sess.Render(im, opts, func(rendered image.Image, err error) {
				img, renderErr = rendered, err
			})
			if err := await(cmd.Context(), op); err != nil {
				return err
			}
			if renderErr != nil {
				return renderErr
			}
			if img == nil {
				return errors.New("render produced no image")
			}

			data, err := render.EncodePNG(img)
			if err != nil {
				return err
			}
			if err := writeFile(out, data); err != nil {
				return err
			}
			if out != "-" {
				b := img.Bounds()
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%dx%d)\n", out, b.Dx(), b.Dy())
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&size, "size", imoji.RenderSizeFullResolution.String(), "source asset: full or thumbnail")
	f.BoolVar(&border, "border", false, "draw a sticker border")
	f.BoolVar(&shadow, "shadow", false, "draw a drop shadow")
	f.IntVar(&width, "width", 0, "fit into this width, 0 keeps the source size")
	f.IntVar(&height, "height", 0, "fit into this height, 0 keeps the source size")
	f.StringVarP(&out, "out", "o", "sticker.png", "output file, - for stdout")
	return cmd
}
