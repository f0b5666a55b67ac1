package urls

// Documentation URLs for guides and troubleshooting.
// All URLs point to the project documentation at https://tcam.github.io/gwcfg/

// Project is the source repository shown in headers and version output.
const Project = "github.com/tcam/gwcfg"

// GettingStarted covers installing gwcfg and pointing it at a gateway.
const GettingStarted = "https://tcam.github.io/gwcfg/getting-started/"

// Wizards describes the model, parameter, device and rule wizards and the
// answer-file format accepted by `gwcfg add -f`.
const Wizards = "https://tcam.github.io/gwcfg/wizards/"

// ModbusRegisters explains register addresses, function codes and data
// types for Modbus parameters.
const ModbusRegisters = "https://tcam.github.io/gwcfg/wizards/modbus/"

// GatewayProfiles documents the gateway registry, environment variables and
// mDNS discovery.
const GatewayProfiles = "https://tcam.github.io/gwcfg/gateways/"

// TroubleshootingGuide provides solutions to connection, authentication and
// submission problems.
const TroubleshootingGuide = "https://tcam.github.io/gwcfg/troubleshooting/"
