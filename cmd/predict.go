package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kilianp07/housepredict/app"
	"github.com/kilianp07/housepredict/core/controller"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/kilianp07/housepredict/infra/logger"
)

// ErrPredictionFailed is returned when the cycle ends in the Failed state.
// The user-facing message has already been printed.
var ErrPredictionFailed = errors.New("prediction failed")

var predictValues = map[model.FieldName]*string{}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate the price of a house",
	RunE:  runPredict,
}

func init() {
	flags := []struct {
		field model.FieldName
		name  string
		usage string
	}{
		{model.OverallQual, "overall-qual", "overall quality, 1-10"},
		{model.GrLivArea, "gr-liv-area", "above-ground living area in sq ft"},
		{model.GarageCars, "garage-cars", "garage capacity in cars, 0-5"},
		{model.YearBuilt, "year-built", "construction year"},
		{model.TotalBsmtSF, "total-bsmt-sf", "basement area in sq ft"},
	}
	for _, f := range flags {
		predictValues[f.field] = predictCmd.Flags().String(f.name, "", f.usage)
	}
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	values := make(map[model.FieldName]string, model.FieldCount)
	for f, v := range predictValues {
		values[f] = *v
	}
	snap, err := svc.Predict(ctx, values)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, snap)
}

func printSnapshot(cmd *cobra.Command, snap controller.Snapshot) error {
	if snap.State != model.StateSucceeded || snap.Outcome == nil {
		if _, err := fmt.Fprintln(cmd.ErrOrStderr(), snap.Error); err != nil {
			return err
		}
		return ErrPredictionFailed
	}
	p := message.NewPrinter(language.AmericanEnglish)
	o := snap.Outcome
	_, err := p.Fprintf(cmd.OutOrStdout(),
		"Predicted price: $%.0f\nEstimated range: $%.0f - $%.0f (%s)\n",
		o.PredictedPrice, o.LowerBound, o.UpperBound, o.IntervalSource)
	return err
}
