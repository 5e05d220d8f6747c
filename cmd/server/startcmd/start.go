package startcmd

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	cmdutils "github.com/trustbloc/cmdutil-go/pkg/utils/cmd"
	"go.uber.org/zap"

	"github.com/kokukuma/mdoc-issuer/country"
	"github.com/kokukuma/mdoc-issuer/internal/log"
	"github.com/kokukuma/mdoc-issuer/internal/metrics"
	"github.com/kokukuma/mdoc-issuer/internal/server"
	"github.com/kokukuma/mdoc-issuer/schema"
	"github.com/kokukuma/mdoc-issuer/signer"
)

var logger = log.New("issuer-rest")

const (
	hostURLFlagName      = "host-url"
	hostURLFlagShorthand = "u"
	hostURLFlagUsage     = "URL to run the issuer instance on. Format: HostName:Port." +
		" Alternatively, this can be set with the following environment variable: " + hostURLEnvKey
	hostURLEnvKey = "ISSUER_HOST_URL"

	serviceURLFlagName  = "service-url"
	serviceURLFlagUsage = "Base URL of the signing service. The formatter endpoints are resolved against it." +
		" Alternatively, this can be set with the following environment variable: " + serviceURLEnvKey
	serviceURLEnvKey = "ISSUER_SERVICE_URL"

	mdlServiceURLFlagName  = "mdl-service-url"
	mdlServiceURLFlagUsage = "Full URL of the mDL CBOR signing service. mDL mdoc requests are sent there when set." +
		" Alternatively, this can be set with the following environment variable: " + mdlServiceURLEnvKey
	mdlServiceURLEnvKey = "ISSUER_MDL_SERVICE_URL"

	credentialsFileFlagName  = "credentials-file"
	credentialsFileFlagUsage = "Path to the credential configurations file. The built-in catalog is used if not set." +
		" Alternatively, this can be set with the following environment variable: " + credentialsFileEnvKey
	credentialsFileEnvKey = "ISSUER_CREDENTIALS_FILE"

	countriesFileFlagName  = "countries-file"
	countriesFileFlagUsage = "Path to the supported countries file. The built-in list is used if not set." +
		" Alternatively, this can be set with the following environment variable: " + countriesFileEnvKey
	countriesFileEnvKey = "ISSUER_COUNTRIES_FILE"

	apiVersionsFlagName  = "api-versions"
	apiVersionsFlagUsage = "Comma-separated list of accepted request versions. Default: " + defaultAPIVersions + "." +
		" Alternatively, this can be set with the following environment variable: " + apiVersionsEnvKey
	apiVersionsEnvKey = "ISSUER_API_VERSIONS"

	requestTimeoutFlagName  = "request-timeout"
	requestTimeoutFlagUsage = "Timeout of a single call to the signing service, e.g. 10s. Default: 10s." +
		" Alternatively, this can be set with the following environment variable: " + requestTimeoutEnvKey
	requestTimeoutEnvKey = "ISSUER_REQUEST_TIMEOUT"

	signingRetriesFlagName  = "signing-retries"
	signingRetriesFlagUsage = "Number of retries of a failed signing call. Default: 3." +
		" Alternatively, this can be set with the following environment variable: " + signingRetriesEnvKey
	signingRetriesEnvKey = "ISSUER_SIGNING_RETRIES"

	logLevelFlagName  = "log-level"
	logLevelFlagUsage = "Logging level. Supported options: DEBUG, INFO, WARN, ERROR. Default: INFO." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey
	logLevelEnvKey = "ISSUER_LOG_LEVEL"

	corsOriginsFlagName  = "cors-origins"
	corsOriginsFlagUsage = "Comma-separated list of allowed CORS origins. Default: *." +
		" Alternatively, this can be set with the following environment variable: " + corsOriginsEnvKey
	corsOriginsEnvKey = "ISSUER_CORS_ORIGINS"

	defaultAPIVersions    = "0.3,0.4"
	defaultRequestTimeout = 10 * time.Second
)

type httpServer interface {
	ListenAndServe(host string, router http.Handler) error
}

// HTTPServer represents an actual HTTP server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler) error {
	return http.ListenAndServe(host, router)
}

type issuerParameters struct {
	hostURL         string
	serviceURL      string
	mdlServiceURL   string
	credentialsFile string
	countriesFile   string
	apiVersions     []string
	requestTimeout  time.Duration
	signingRetries  uint64
	logLevel        string
	corsOrigins     []string
}

// GetStartCmd returns the Cobra start command.
func GetStartCmd(srv httpServer) *cobra.Command {
	startCmd := createStartCmd(srv)

	createFlags(startCmd)

	return startCmd
}

func createStartCmd(srv httpServer) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start issuer",
		Long:  "Start the credential issuer REST service",
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getIssuerParameters(cmd)
			if err != nil {
				return err
			}

			return startIssuer(parameters, srv, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
		},
	}
}

func createFlags(startCmd *cobra.Command) {
	startCmd.Flags().StringP(hostURLFlagName, hostURLFlagShorthand, "", hostURLFlagUsage)
	startCmd.Flags().StringP(serviceURLFlagName, "", "", serviceURLFlagUsage)
	startCmd.Flags().StringP(mdlServiceURLFlagName, "", "", mdlServiceURLFlagUsage)
	startCmd.Flags().StringP(credentialsFileFlagName, "", "", credentialsFileFlagUsage)
	startCmd.Flags().StringP(countriesFileFlagName, "", "", countriesFileFlagUsage)
	startCmd.Flags().StringP(apiVersionsFlagName, "", "", apiVersionsFlagUsage)
	startCmd.Flags().StringP(requestTimeoutFlagName, "", "", requestTimeoutFlagUsage)
	startCmd.Flags().StringP(signingRetriesFlagName, "", "", signingRetriesFlagUsage)
	startCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
	startCmd.Flags().StringP(corsOriginsFlagName, "", "", corsOriginsFlagUsage)
}

func getIssuerParameters(cmd *cobra.Command) (*issuerParameters, error) {
	hostURL, err := cmdutils.GetUserSetVarFromString(cmd, hostURLFlagName, hostURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	serviceURL, err := cmdutils.GetUserSetVarFromString(cmd, serviceURLFlagName, serviceURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	mdlServiceURL := cmdutils.GetUserSetOptionalVarFromString(cmd, mdlServiceURLFlagName, mdlServiceURLEnvKey)
	credentialsFile := cmdutils.GetUserSetOptionalVarFromString(cmd, credentialsFileFlagName, credentialsFileEnvKey)
	countriesFile := cmdutils.GetUserSetOptionalVarFromString(cmd, countriesFileFlagName, countriesFileEnvKey)

	apiVersions := cmdutils.GetUserSetOptionalCSVVar(cmd, apiVersionsFlagName, apiVersionsEnvKey)
	if len(apiVersions) == 0 {
		apiVersions = strings.Split(defaultAPIVersions, ",")
	}

	requestTimeout, err := getDuration(cmd, requestTimeoutFlagName, requestTimeoutEnvKey, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}

	signingRetries, err := getUint(cmd, signingRetriesFlagName, signingRetriesEnvKey)
	if err != nil {
		return nil, err
	}

	logLevel := cmdutils.GetUserSetOptionalVarFromString(cmd, logLevelFlagName, logLevelEnvKey)
	if err := setLogLevel(logLevel); err != nil {
		return nil, err
	}

	return &issuerParameters{
		hostURL:         hostURL,
		serviceURL:      serviceURL,
		mdlServiceURL:   mdlServiceURL,
		credentialsFile: credentialsFile,
		countriesFile:   countriesFile,
		apiVersions:     apiVersions,
		requestTimeout:  requestTimeout,
		signingRetries:  signingRetries,
		logLevel:        logLevel,
		corsOrigins:     cmdutils.GetUserSetOptionalCSVVar(cmd, corsOriginsFlagName, corsOriginsEnvKey),
	}, nil
}

func getDuration(cmd *cobra.Command, flagName, envKey string,
	defaultDuration time.Duration) (time.Duration, error) {
	timeoutStr := cmdutils.GetUserSetOptionalVarFromString(cmd, flagName, envKey)
	if timeoutStr == "" {
		return defaultDuration, nil
	}

	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return -1, fmt.Errorf("invalid value [%s]: %w", timeoutStr, err)
	}

	return timeout, nil
}

// getUint returns 0 when unset, which selects the signer default.
func getUint(cmd *cobra.Command, flagName, envKey string) (uint64, error) {
	str := cmdutils.GetUserSetOptionalVarFromString(cmd, flagName, envKey)
	if str == "" {
		return 0, nil
	}

	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value [%s]: %w", str, err)
	}

	return v, nil
}

func setLogLevel(logLevel string) error {
	if logLevel == "" {
		logLevel = "INFO"
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("%s: %w", logLevel, err)
	}

	log.SetDefaultLevel(level)
	logger.Info("logger level set", zap.Stringer("level", level))

	return nil
}

func loadCatalog(path string) (*schema.Catalog, error) {
	if path == "" {
		return schema.DefaultCatalog()
	}
	return schema.LoadCatalog(path)
}

func loadCountries(path string) (*country.Registry, error) {
	if path == "" {
		return country.Default()
	}
	return country.Load(path)
}

func startIssuer(parameters *issuerParameters, srv httpServer,
	reg prometheus.Registerer, gatherer prometheus.Gatherer) error {
	catalog, err := loadCatalog(parameters.credentialsFile)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	countries, err := loadCountries(parameters.countriesFile)
	if err != nil {
		return fmt.Errorf("load countries: %w", err)
	}

	httpClient := &http.Client{Timeout: parameters.requestTimeout}

	signerClient, err := signer.New(&signer.Config{
		ServiceURL: parameters.serviceURL,
		HTTPClient: httpClient,
		MaxRetries: parameters.signingRetries,
	})
	if err != nil {
		return err
	}

	config := &server.Config{
		Catalog:     catalog,
		Countries:   countries,
		Signer:      signerClient,
		APIVersions: parameters.apiVersions,
		Metrics:     metrics.New(reg),
		Gatherer:    gatherer,
	}
	if parameters.mdlServiceURL != "" {
		config.MDLSigner = signer.NewMDLClient(&signer.MDLConfig{
			URL:        parameters.mdlServiceURL,
			HTTPClient: httpClient,
			MaxRetries: parameters.signingRetries,
		})
	}

	s, err := server.NewServer(config)
	if err != nil {
		return err
	}

	logger.Info("starting issuer",
		zap.String("host", parameters.hostURL),
		log.WithURL(parameters.serviceURL),
	)

	return srv.ListenAndServe(parameters.hostURL, s.Router(parameters.corsOrigins))
}
