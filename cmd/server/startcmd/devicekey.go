package startcmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	cmdutils "github.com/trustbloc/cmdutil-go/pkg/utils/cmd"

	"github.com/kokukuma/mdoc-issuer/devicekey"
)

const (
	pemFileFlagName  = "pem-file"
	pemFileFlagUsage = "Path to a PEM encoded P-256 public key." +
		" Alternatively, this can be set with the following environment variable: " + pemFileEnvKey
	pemFileEnvKey = "ISSUER_DEVICE_KEY_PEM_FILE"

	didFlagName  = "did"
	didFlagUsage = "did:key of a P-256 device key." +
		" Alternatively, this can be set with the following environment variable: " + didEnvKey
	didEnvKey = "ISSUER_DEVICE_KEY_DID"
)

// GetDeviceKeyCmd returns the command printing the COSE_Key and JWK forms of a device key.
func GetDeviceKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devicekey",
		Short: "Convert a device key",
		Long:  "Print the COSE_Key and JWK encodings of a wallet device public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			pemFile := cmdutils.GetUserSetOptionalVarFromString(cmd, pemFileFlagName, pemFileEnvKey)
			did := cmdutils.GetUserSetOptionalVarFromString(cmd, didFlagName, didEnvKey)

			var (
				conv *devicekey.Conversion
				err  error
			)
			switch {
			case pemFile != "" && did != "":
				return fmt.Errorf("only one of %s and %s can be set", pemFileFlagName, didFlagName)
			case pemFile != "":
				conv, err = devicekey.ConvertFile(pemFile)
			case did != "":
				conv, err = devicekey.ConvertDIDKey(did)
			default:
				return errors.New("either " + pemFileFlagName + " or " + didFlagName + " must be set")
			}
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(conv, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringP(pemFileFlagName, "", "", pemFileFlagUsage)
	cmd.Flags().StringP(didFlagName, "", "", didFlagUsage)

	return cmd
}
