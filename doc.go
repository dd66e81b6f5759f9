/*
LIGHTHOUSE decodes lighthouse v2 optical sweeps into absolute locations on the
base station's LFSR coded pseudorandom sequence.

Each capture frame holds one 128 byte window per photodiode receiver. Every
window is demodulated into a 64 bit chip sequence, matched against the known
base station polynomials and located relative to the polynomial's reference
state. Frames which fail to decode are counted and skipped.

Command-line Flags:

Long flags take two dashes, for example --format=csv.

	--capture=""

Sets the recorded capture file to decode. Files ending in .gz or .zst are
decompressed on the fly.

	--config=""

Sets a yaml configuration file. Matcher parameters, logging, metrics and MQTT
publishing are configured here:

	matcher:
	  candidates: [0, 1]
	  window: 47
	  threshold: 4
	  maxoffset: 8
	  minwindow: 10
	log:
	  level: info
	  format: text
	metrics:
	  listen: ":9100"
	mqtt:
	  enabled: false
	  broker: tcp://localhost:1883
	  topic: lighthouse/location
	  qos: 0

	--format="plain"

Sets the output format. Defaults to plain.

Plain text is formatted using the following format string:

	{Time:%s Frame:%d Locations:{{Polynomial:%d Location:%6d} {Polynomial:%d Location:%6d}}}

Locations are ordered by ascending location. No fields are omitted for json
or csv output. Each location pair is encoded on a single line.

	--header=false

Precedes csv output with a header row.

	--frames=0

Sets the number of frames to process, 0 for the whole recording.

	--loglevel=""

Overrides the configured log level.

	--metrics=""

Overrides the address prometheus metrics are served on.

	--single=false

Provides one shot execution. Exits after the first location pair.

	--version=false

Displays the build tag, date and commit hash.

Every flag may also be set from the environment as LIGHTHOUSE_<FLAG>, for
example LIGHTHOUSE_FORMAT=csv.
*/
package main
