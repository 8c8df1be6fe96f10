package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/c-bata/go-prompt"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/signer/lit"
)

func main() {
	conf, dotEnvLoaded, err := LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %s\n", err.Error())
		return
	}

	lg := log.NewZapLogger(conf.Log).WithName("litsigner")
	if !dotEnvLoaded {
		lg.Warn(".env file not found")
	}

	registry := prometheus.NewRegistry()

	var litSigner *lit.Signer
	if conf.Lit.PKPPublicKey != "" {
		litConf := conf.Lit
		litConf.Logger = lg
		litConf.Registerer = registry
		litSigner, err = lit.New(litConf)
		if err != nil {
			fmt.Printf("Failed to create lit signer: %s\n", err.Error())
			return
		}
		lg.Info("lit signer ready", "network", litSigner.Network(), "pkp", litSigner.PKPPublicKey())
	} else {
		lg.Warn("no PKP configured, only local keys are available")
	}

	operator := NewOperator(litSigner, registry, conf.CommandTimeout, lg)

	initialState, _ := term.GetState(int(os.Stdin.Fd()))
	handleExit := func() {
		if litSigner != nil {
			litSigner.Close()
		}
		if initialState != nil {
			term.Restore(int(os.Stdin.Fd()), initialState)
		}
		exec.Command("stty", "sane").Run()
	}

	options := append(getStyleOptions(),
		prompt.OptionPrefix(">>> "),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(buf *prompt.Buffer) {
				fmt.Println("Exiting Lit Signer CLI.")
				handleExit()
				os.Exit(0)
			},
		}),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn:  func(buf *prompt.Buffer) {},
		}),
	)
	p := prompt.New(
		operator.Execute,
		operator.Complete,
		options...,
	)

	promptExitCh := make(chan struct{})
	go func() {
		p.Run()
		close(promptExitCh)
	}()

	select {
	case <-operator.Wait():
	case <-promptExitCh:
	}
	handleExit()
	fmt.Println("Exiting Lit Signer CLI.")
}

func emptyCompleter(d prompt.Document) []prompt.Suggest {
	return []prompt.Suggest{}
}

func getStyleOptions() []prompt.Option {
	return []prompt.Option{
		prompt.OptionTitle("Lit Signer CLI"),
		prompt.OptionPrefixTextColor(prompt.Yellow),
		prompt.OptionPreviewSuggestionTextColor(prompt.Cyan),

		prompt.OptionSuggestionTextColor(prompt.White),
		prompt.OptionSuggestionBGColor(prompt.DarkBlue),

		prompt.OptionDescriptionTextColor(prompt.Black),
		prompt.OptionDescriptionBGColor(prompt.Yellow),

		prompt.OptionSelectedSuggestionTextColor(prompt.Black),
		prompt.OptionSelectedSuggestionBGColor(prompt.Yellow),

		prompt.OptionSelectedDescriptionTextColor(prompt.White),
		prompt.OptionSelectedDescriptionBGColor(prompt.DarkBlue),
	}
}
