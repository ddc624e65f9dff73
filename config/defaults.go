package config

// Defaults mirrors the DRAM/controller/SMD-relevant subset of the
// original source's Config::defaults map (spec.md §6); options that
// belong to out-of-scope subsystems (CPU front-end, cache, prefetcher,
// CROW/TL-DRAM/SALP — see spec.md §1 and §9) are not carried, since this
// simulator core never reads them.
func Defaults() map[string]string {
	return map[string]string{
		// DRAM device.
		"standard":       "DDR4",
		"speed":          "DDR4_3200",
		"org":            "DDR4_8Gb_x8",
		"channels":       "1",
		"ranks":          "1",
		"subarray_size":  "512",

		// Memory controller.
		"row_policy":                    "opened",
		"timeout_row_policy_threshold":  "120",
		"disable_refresh":               "false",
		"refresh_mult":                  "1.0",
		"per_bank_refresh":              "false",
		"enable_para":                   "off",
		"para_neighbor_refresh_pct":     "1",
		"enable_scrubbing":              "off",
		"scrubbing_period":              "1600000000",

		// Self-Managing DRAM.
		"smd":                                       "off",
		"smd_mode":                                  "RSQ",
		"smd_ref_policy":                             "FixedRate",
		"smd_num_ref_machines":                       "4",
		"smd_refresh_period":                         "102400000",
		"smd_row_refresh_granularity":                "8",
		"smd_timeout_to_ref_interval_ratio":          "0.5",
		"smd_single_ref_latency":                     "80",
		"smd_pending_ref_limit":                      "9",
		"smd_max_row_open_intervals":                 "8",
		"smd_act_to_nack_cycles":                     "4",
		"smd_act_nack_resend_interval":               "100",
		"smd_combined_policy_threshold":              "32767",

		"smd_variable_refresh_distribution":          "discrete",
		"smd_variable_refresh_weak_row_percentage":   "0.05",
		"smd_variable_refresh_bloom_filter_size":     "8192",
		"smd_variable_refresh_bloom_filter_hashes":   "6",

		"smd_ecc_scrubbing_enabled":                  "false",
		"smd_scrubbing_lock_region":                  "bank",
		"smd_num_scrubbing_machines":                 "1",
		"smd_pending_scrub_limit":                    "9",
		"smd_scrubbing_granularity":                  "1",
		"smd_single_scrubbing_latency":                "552",
		"smd_ecc_scrubbing_period":                    "1600000000",
		"smd_timeout_to_ecc_scrubbing_interval_ratio": "0.5",

		"smd_rh_protection_enabled":                "false",
		"smd_rh_protection_mode":                   "CBF",
		"smd_rh_blast_radius":                       "1",
		"smd_rh_neighbor_refresh_pct":                "1",
		"smd_rh_protection_bloom_filter_size":       "8192",
		"smd_rh_protection_bloom_filter_hashes":      "4",
		"smd_rh_protection_bloom_filter_epoch":       "51200000",
		"smd_rh_protection_bloom_filter_type":        "blockhammer",
		"smd_rh_protection_mac":                      "8192",
		"smd_rh_protection_neighbor_ref_queue_size":  "1024",

		// RAIDR (controller-side, supplemented feature).
		"raidr_enabled":                             "false",
		"raidr_refresh_period":                       "64000000",
		"raidr_variable_refresh_distribution":        "normal",
		"raidr_variable_refresh_weak_row_percentage": "5",
		"raidr_variable_refresh_bloom_filter_size":   "8192",
		"raidr_variable_refresh_bloom_filter_hashes":  "2",

		// DRAMPower integration boundary.
		"dpower_memspec_path":                 "./configs/16Gb_DDR4_3200_8bit.xml",
		"dpower_include_io_and_termination":   "true",
	}
}
