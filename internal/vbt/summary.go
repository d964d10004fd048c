package vbt

// Plausible concentric bar speeds in m/s. Anything outside is a sensor
// glitch and gets flagged rather than dropped.
const (
	minPlausibleVelocity = 0.05
	maxPlausibleVelocity = 3.0
)

// RepIngest is one rep as reported by the device.
type RepIngest struct {
	RepNumber          int      `json:"rep_number"`
	MeanVelocity       float64  `json:"mean_velocity"`
	PeakVelocity       float64  `json:"peak_velocity"`
	EccentricDuration  *float64 `json:"eccentric_duration"`
	ConcentricDuration *float64 `json:"concentric_duration"`
	RomMeters          *float64 `json:"rom_meters"`
	TimeToPeakVel      *float64 `json:"time_to_peak_vel"`
	BarPathDeviation   *float64 `json:"bar_path_deviation"`
}

type setStats struct {
	repCount     int
	avgVelocity  float64
	peakVelocity float64
	velocityLoss *float64
	flagged      bool
	flagReason   *string
}

// summarize rolls a set of reps up into the dashboard-facing numbers:
// mean of rep mean velocities, max of rep peaks, and velocity loss as
// the drop from the fastest rep to the last rep in percent of the
// fastest. Velocity loss needs at least two reps.
func summarize(reps []RepIngest) setStats {
	var stats setStats
	stats.repCount = len(reps)
	if len(reps) == 0 {
		return stats
	}

	best := reps[0].MeanVelocity
	var sum float64
	for _, rep := range reps {
		sum += rep.MeanVelocity
		if rep.MeanVelocity > best {
			best = rep.MeanVelocity
		}
		if rep.PeakVelocity > stats.peakVelocity {
			stats.peakVelocity = rep.PeakVelocity
		}
	}
	stats.avgVelocity = sum / float64(len(reps))

	if len(reps) >= 2 && best > 0 {
		last := reps[len(reps)-1].MeanVelocity
		loss := (best - last) / best * 100
		stats.velocityLoss = &loss
	}

	for _, rep := range reps {
		if flagged, reason := flagRep(rep); flagged {
			stats.flagged = true
			stats.flagReason = &reason
			break
		}
	}

	return stats
}

func flagRep(rep RepIngest) (bool, string) {
	if rep.MeanVelocity < minPlausibleVelocity || rep.MeanVelocity > maxPlausibleVelocity {
		return true, "implausible mean velocity"
	}
	if rep.PeakVelocity < rep.MeanVelocity {
		return true, "peak velocity below mean velocity"
	}
	return false, ""
}

// velocityLossPerRep computes each rep's drop-off against the fastest
// rep seen so far, mirroring what the set-level velocity loss does.
func velocityLossPerRep(reps []RepIngest) []*float64 {
	losses := make([]*float64, len(reps))
	var best float64
	for i, rep := range reps {
		if rep.MeanVelocity > best {
			best = rep.MeanVelocity
		}
		if i > 0 && best > 0 {
			loss := (best - rep.MeanVelocity) / best * 100
			losses[i] = &loss
		}
	}
	return losses
}
