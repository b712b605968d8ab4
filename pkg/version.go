package moodiary

// Version is the released version of moodiary.
const Version = "0.1.0"
